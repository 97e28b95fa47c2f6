// Package bot реализует Telegram-транспорт: команды продажи подписки,
// личный кабинет, платежи и административные операции.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/models"
	"github.com/merik2009/vpn-shop-bot/internal/panel"
	"github.com/merik2009/vpn-shop-bot/internal/services/provisioning"
	"github.com/merik2009/vpn-shop-bot/internal/session"
)

// Provisioner описывает сценарий выдачи подписки.
type Provisioner interface {
	Start(userID int64) session.Selection
	ChooseType(userID int64, connectionType string) (session.Selection, error)
	ChoosePlan(userID int64, planID string) (session.Selection, error)
	SubmitEmail(userID int64, email string) (session.Selection, error)
	RequestPayment(userID int64) (session.Selection, error)
	InvoicePayload(userID int64) (string, *models.Plan, error)
	HandlePaymentCompleted(ctx context.Context, userID int64, payload string, amount int) (*models.ProvisionResult, error)
}

// StatsProvider отдаёт личный кабинет и административную сводку.
type StatsProvider interface {
	Usage(ctx context.Context, email string) (*models.UsageInfo, error)
	Summary(ctx context.Context) (*models.UsageSummary, error)
	InvalidateSnapshot()
}

// UserStore описывает операции хранилища, нужные транспорту.
type UserStore interface {
	UpsertUser(ctx context.Context, id int64, username string, isAdmin bool) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateLink(ctx context.Context, id int64, link string) error
	DeleteUser(ctx context.Context, id int64) error
	ListPayments(ctx context.Context, userID int64) ([]*models.Payment, error)
	CountUsers(ctx context.Context) (int, error)
	CountPayments(ctx context.Context) (int, error)
}

// Reconciler запускает сверку локальных ссылок с панелью.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Broadcaster ставит массовую рассылку в очередь.
type Broadcaster interface {
	Broadcast(adminID int64, text string) error
}

// Options — платёжные реквизиты и список администраторов.
type Options struct {
	PaymentProviderToken string
	Currency             string
	AdminIDs             []int64
}

// Bot — обработчик обновлений Telegram.
type Bot struct {
	api        *tgbotapi.BotAPI
	prov       Provisioner
	stats      StatsProvider
	store      UserStore
	sessions   *session.Store
	brod       Broadcaster
	reconciler Reconciler
	opts       Options
	log        *slog.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// New создает обработчик поверх готового API-клиента Telegram.
func New(api *tgbotapi.BotAPI, prov Provisioner, stats StatsProvider, store UserStore, sessions *session.Store, brod Broadcaster, reconciler Reconciler, opts Options, log *slog.Logger) *Bot {
	return &Bot{
		api:        api,
		prov:       prov,
		stats:      stats,
		store:      store,
		sessions:   sessions,
		brod:       brod,
		reconciler: reconciler,
		opts:       opts,
		log:        log,
		limiters:   make(map[int64]*rate.Limiter),
	}
}

// allow ограничивает частоту обращений отдельного пользователя.
func (b *Bot) allow(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	lim, ok := b.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(1, 3)
		b.limiters[userID] = lim
	}
	return lim.Allow()
}

// Run читает обновления до отмены контекста.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("telegram bot started", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("telegram bot stopped")
			return nil
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

// SendText доставляет текст пользователю. Используется доставщиком рассылок.
func (b *Bot) SendText(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	const op = "bot.handleUpdate"

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in update handler", slog.String("op", op), slog.Any("panic", r))
		}
	}()

	// Платёжные события не троттлятся: их инициирует не пользователь.
	switch {
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		b.handleSuccessfulPayment(ctx, update.Message)
	case update.CallbackQuery != nil:
		if !b.allow(update.CallbackQuery.From.ID) {
			return
		}
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if !b.allow(update.Message.From.ID) {
			b.reply(update.Message.Chat.ID, "Слишком много запросов, подождите немного.")
			return
		}
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	log := b.log.With(sl.UserID(userID))

	if err := b.store.UpsertUser(ctx, userID, msg.From.UserName, b.isAdmin(userID)); err != nil {
		log.Error("failed to upsert user", sl.Err(err))
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	sel := b.sessions.Get(userID)
	switch {
	case sel.State == session.StateAwaitingEmail:
		b.handleEmailInput(ctx, msg)
	case sel.AwaitingBroadcast && b.isAdmin(userID):
		b.handleBroadcastInput(msg)
	default:
		b.reply(msg.Chat.ID, "Не понимаю. Команда /help покажет, что я умею.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	switch msg.Command() {
	case "start", "buy":
		b.prov.Start(userID)
		out := tgbotapi.NewMessage(msg.Chat.ID, "Выберите тип подключения:")
		out.ReplyMarkup = typeKeyboard()
		b.send(out)
	case "profile":
		b.handleProfile(ctx, msg)
	case "payments":
		b.handlePayments(ctx, msg)
	case "help":
		b.reply(msg.Chat.ID, helpText(b.isAdmin(userID)))
	case "allstats":
		if !b.isAdmin(userID) {
			b.reply(msg.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.handleAllStats(ctx, msg)
	case "broadcast":
		if !b.isAdmin(userID) {
			b.reply(msg.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.sessions.Update(userID, func(sel *session.Selection) { sel.AwaitingBroadcast = true })
		b.reply(msg.Chat.ID, "Пришлите текст рассылки одним сообщением.")
	case "admin":
		if !b.isAdmin(userID) {
			b.reply(msg.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.reply(msg.Chat.ID, adminHelpText)
	case "users":
		if !b.isAdmin(userID) {
			b.reply(msg.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.handleUsers(ctx, msg)
	case "grant":
		if !b.isAdmin(userID) {
			b.reply(msg.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.handleGrant(ctx, msg)
	case "deluser":
		if !b.isAdmin(userID) {
			b.reply(msg.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.handleDeleteUser(ctx, msg)
	case "sync_users":
		if !b.isAdmin(userID) {
			b.reply(msg.Chat.ID, "Команда доступна только администраторам.")
			return
		}
		b.handleSyncUsers(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Неизвестная команда. /help")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID
	log := b.log.With(sl.UserID(userID))

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warn("failed to answer callback", sl.Err(err))
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, callbackTypePrefix):
		if _, err := b.prov.ChooseType(userID, strings.TrimPrefix(data, callbackTypePrefix)); err != nil {
			log.Warn("connection type rejected", sl.Err(err))
			b.reply(cb.Message.Chat.ID, "Начните заново: /start")
			return
		}
		out := tgbotapi.NewMessage(cb.Message.Chat.ID, "Выберите тариф:")
		out.ReplyMarkup = planKeyboard()
		b.send(out)
	case strings.HasPrefix(data, callbackPlanPrefix):
		if _, err := b.prov.ChoosePlan(userID, strings.TrimPrefix(data, callbackPlanPrefix)); err != nil {
			log.Warn("plan rejected", sl.Err(err))
			b.reply(cb.Message.Chat.ID, "Начните заново: /start")
			return
		}
		b.reply(cb.Message.Chat.ID, "Пришлите email, на который оформить подписку.")
	case data == callbackPay:
		switch _, err := b.prov.RequestPayment(userID); {
		case errors.Is(err, provisioning.ErrRateLimited):
			log.Warn("payment attempts exhausted")
			b.reply(cb.Message.Chat.ID, "Слишком много попыток оплаты. Обратитесь в поддержку.")
			return
		case err != nil:
			log.Warn("payment request rejected", sl.Err(err))
			b.reply(cb.Message.Chat.ID, "Начните заново: /start")
			return
		}
		b.sendInvoice(cb.Message.Chat.ID, userID)
	}
}

func (b *Bot) handleEmailInput(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	sel, err := b.prov.SubmitEmail(userID, msg.Text)
	switch {
	case errors.Is(err, provisioning.ErrRateLimited):
		b.reply(msg.Chat.ID, "Слишком много неудачных попыток. Начните заново: /start")
		return
	case errors.Is(err, provisioning.ErrInvalidEmail):
		b.reply(msg.Chat.ID, "Это не похоже на email. Попробуйте ещё раз.")
		return
	case err != nil:
		b.reply(msg.Chat.ID, "Начните заново: /start")
		return
	}

	// Счёт выставляется только после явного нажатия кнопки оплаты.
	out := tgbotapi.NewMessage(msg.Chat.ID, "Email "+sel.Email+" сохранён. Теперь можно оплатить выбранный тариф:")
	out.ReplyMarkup = payKeyboard()
	b.send(out)
}

func (b *Bot) sendInvoice(chatID, userID int64) {
	log := b.log.With(sl.UserID(userID))

	payload, plan, err := b.prov.InvoicePayload(userID)
	if err != nil {
		log.Error("failed to build invoice payload", sl.Err(err))
		b.reply(chatID, "Не получилось выставить счёт. Начните заново: /start")
		return
	}

	invoice := tgbotapi.NewInvoice(chatID,
		"Подписка "+plan.Name,
		fmt.Sprintf("Доступ к VPN на %d дней", plan.PeriodDays),
		payload,
		b.opts.PaymentProviderToken,
		"vpn-subscription",
		b.opts.Currency,
		[]tgbotapi.LabeledPrice{{Label: plan.Name, Amount: plan.Price}},
	)
	if _, err := b.api.Send(invoice); err != nil {
		log.Error("failed to send invoice", sl.Err(err))
		b.reply(chatID, "Не получилось выставить счёт, попробуйте позже.")
	}
}

func (b *Bot) handlePreCheckout(q *tgbotapi.PreCheckoutQuery) {
	// Нагрузка проверяется до подтверждения: испорченный счёт не оплачивается.
	ok := len(strings.Split(q.InvoicePayload, "|")) == 3
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: q.ID,
		OK:                 ok,
	}
	if !ok {
		answer.ErrorMessage = "Счёт устарел, начните заново: /start"
	}
	if _, err := b.api.Request(answer); err != nil {
		b.log.Error("failed to answer pre-checkout query", sl.Err(err))
	}
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	log := b.log.With(sl.UserID(userID))
	payment := msg.SuccessfulPayment

	b.reply(msg.Chat.ID, "Оплата получена, настраиваю доступ...")

	res, err := b.prov.HandlePaymentCompleted(ctx, userID, payment.InvoicePayload, payment.TotalAmount)
	if err != nil {
		log.Error("provisioning after payment failed", sl.Err(err))
		b.reply(msg.Chat.ID, failureText(err))
		return
	}

	// На панели появился новый клиент, кэшированный снимок устарел.
	b.stats.InvalidateSnapshot()

	b.reply(msg.Chat.ID, "Готово! Ваша ссылка подключения:\n\n"+res.Link)

	png, err := linkQR(res.Link)
	if err != nil {
		log.Warn("failed to encode QR", sl.Err(err))
		return
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: "vpn.png", Bytes: png})
	photo.Caption = "QR-код для быстрого импорта"
	b.send(photo)
}

func (b *Bot) handleProfile(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	log := b.log.With(sl.UserID(userID))

	user, err := b.store.GetUser(ctx, userID)
	if err != nil || user.Email == "" {
		b.reply(msg.Chat.ID, "Подписка не найдена. Оформить: /start")
		return
	}

	info, err := b.stats.Usage(ctx, user.Email)
	if err != nil {
		if errors.Is(err, panel.ErrNotFound) {
			b.reply(msg.Chat.ID, "Подписка не найдена на сервере. Напишите в поддержку.")
			return
		}
		log.Error("failed to fetch usage", sl.Err(err))
		b.reply(msg.Chat.ID, "Сервер статистики временно недоступен, попробуйте позже.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Подписка: %s\n", user.Email)
	if info.Enabled {
		sb.WriteString("Статус: активна\n")
	} else {
		sb.WriteString("Статус: отключена\n")
	}
	fmt.Fprintf(&sb, "Трафик: %s", formatBytes(info.UsedBytes))
	if info.TotalBytes > 0 {
		fmt.Fprintf(&sb, " из %s", formatBytes(info.TotalBytes))
	}
	sb.WriteString("\n")
	if info.ExpiresAt != nil {
		fmt.Fprintf(&sb, "Действует до: %s\n", info.ExpiresAt.Format("02.01.2006"))
	}
	if info.Link != "" {
		sb.WriteString("\nСсылка подключения:\n" + info.Link)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handlePayments(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	payments, err := b.store.ListPayments(ctx, userID)
	if err != nil {
		b.log.Error("failed to list payments", sl.UserID(userID), sl.Err(err))
		b.reply(msg.Chat.ID, "Не получилось загрузить платежи, попробуйте позже.")
		return
	}
	if len(payments) == 0 {
		b.reply(msg.Chat.ID, "Платежей пока нет. Оформить подписку: /start")
		return
	}

	var sb strings.Builder
	sb.WriteString("Ваши платежи:\n")
	for _, p := range payments {
		plan := p.PlanID
		if pl := models.FindPlan(p.PlanID); pl != nil {
			plan = pl.Name
		}
		fmt.Fprintf(&sb, "• %s — %s (%s)\n", plan, formatPrice(p.Amount), formatUnix(p.PaidAt))
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleAllStats(ctx context.Context, msg *tgbotapi.Message) {
	users, err := b.store.CountUsers(ctx)
	if err != nil {
		b.log.Error("failed to count users", sl.Err(err))
	}
	paymentsTotal, err := b.store.CountPayments(ctx)
	if err != nil {
		b.log.Error("failed to count payments", sl.Err(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Пользователей: %d\nПлатежей: %d\n", users, paymentsTotal)

	summary, err := b.stats.Summary(ctx)
	if err != nil {
		sb.WriteString("\nПанель недоступна, сводка по клиентам не получена.")
		b.reply(msg.Chat.ID, sb.String())
		return
	}

	fmt.Fprintf(&sb, "\nКлиентов на панели: %d (активных %d)\n", summary.Total, summary.Active)
	fmt.Fprintf(&sb, "Суммарный трафик: %s\n", formatBytes(summary.TrafficBytes))
	if len(summary.TopByTraffic) > 0 {
		sb.WriteString("\nТоп по трафику:\n")
		for _, top := range summary.TopByTraffic {
			fmt.Fprintf(&sb, "• %s — %s\n", top.Email, formatBytes(top.UsedBytes))
		}
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleUsers(ctx context.Context, msg *tgbotapi.Message) {
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		b.log.Error("failed to list users", sl.Err(err))
		b.reply(msg.Chat.ID, "Не получилось загрузить пользователей.")
		return
	}
	if len(users) == 0 {
		b.reply(msg.Chat.ID, "Пользователей пока нет.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Пользователи:\n")
	for _, u := range users {
		email := u.Email
		if email == "" {
			email = "-"
		}
		fmt.Fprintf(&sb, "ID: %d, @%s, email: %s\n", u.ID, u.Username, email)
	}
	b.reply(msg.Chat.ID, sb.String())
}

// handleGrant выдаёт пользователю ссылку вручную: /grant <id> <ссылка>.
func (b *Bot) handleGrant(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Использование: /grant <ID пользователя> <ссылка>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "ID пользователя должен быть числом.")
		return
	}

	if err := b.store.UpdateLink(ctx, targetID, args[1]); err != nil {
		b.log.Error("failed to grant link", sl.UserID(targetID), sl.Err(err))
		b.reply(msg.Chat.ID, "Не получилось выдать ссылку.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Ссылка выдана пользователю %d.", targetID))
}

func (b *Bot) handleDeleteUser(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	targetID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Использование: /deluser <ID пользователя>")
		return
	}

	if err := b.store.DeleteUser(ctx, targetID); err != nil {
		b.log.Error("failed to delete user", sl.UserID(targetID), sl.Err(err))
		b.reply(msg.Chat.ID, "Не получилось удалить пользователя.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Пользователь %d удалён.", targetID))
}

func (b *Bot) handleSyncUsers(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, "Синхронизирую пользователей с панелью...")

	updated, err := b.reconciler.Reconcile(ctx)
	if err != nil {
		b.log.Error("manual reconcile failed", sl.Err(err))
		b.reply(msg.Chat.ID, "Синхронизация не удалась: панель недоступна.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Синхронизация завершена, обновлено ссылок: %d.", updated))
}

func (b *Bot) handleBroadcastInput(msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.sessions.Update(userID, func(sel *session.Selection) { sel.AwaitingBroadcast = false })

	if err := b.brod.Broadcast(userID, msg.Text); err != nil {
		b.log.Error("failed to queue broadcast", sl.UserID(userID), sl.Err(err))
		b.reply(msg.Chat.ID, "Не получилось поставить рассылку в очередь.")
		return
	}
	b.reply(msg.Chat.ID, "Рассылка поставлена в очередь.")
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.opts.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("failed to send message", sl.Err(err))
	}
}

func failureText(err error) string {
	switch {
	case errors.Is(err, provisioning.ErrBadPayload):
		return "Счёт оказался испорчен. Оплата зафиксирована, напишите в поддержку."
	case errors.Is(err, provisioning.ErrLinkNotFound):
		return "Оплата получена, но настройка затянулась. Оператор уже уведомлён, ссылка придёт отдельно."
	case errors.Is(err, panel.ErrAuth), errors.Is(err, panel.ErrUnavailable):
		return "Оплата получена, но сервер временно недоступен. Оператор уже уведомлён."
	default:
		return "Оплата получена, но что-то пошло не так. Оператор уже уведомлён."
	}
}

func helpText(admin bool) string {
	text := `Команды:
/start — оформить подписку
/profile — ваша подписка и трафик
/payments — история платежей
/help — эта справка`
	if admin {
		text += `

Администратору:
/admin — админ-панель
/allstats — сводка по сервису
/sync_users — синхронизация ссылок с панелью
/broadcast — массовая рассылка`
	}
	return text
}

const adminHelpText = `Админ-панель:
/users — список пользователей
/grant <ID> <ссылка> — выдать ссылку вручную
/deluser <ID> — удалить пользователя
/sync_users — синхронизация ссылок с панелью
/allstats — сводка по сервису
/broadcast — массовая рассылка`
