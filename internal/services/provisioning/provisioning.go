// Package provisioning реализует сценарий выдачи подписки: от выбора тарифа
// до синтеза ссылки подключения после оплаты.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/merik2009/vpn-shop-bot/internal/lib/emailx"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/metrics"
	"github.com/merik2009/vpn-shop-bot/internal/models"
	"github.com/merik2009/vpn-shop-bot/internal/panel"
	"github.com/merik2009/vpn-shop-bot/internal/session"
)

// Ошибки сценария выдачи, которые транспортный слой переводит в ответы пользователю.
var (
	ErrBadPayload   = errors.New("malformed payment payload")
	ErrRateLimited  = errors.New("email attempts exhausted")
	ErrLinkNotFound = errors.New("client not visible on panel after payment")
	ErrInvalidEmail = errors.New("invalid email")
	ErrWrongState   = errors.New("unexpected dialog state")
	ErrUnknownPlan  = errors.New("unknown plan")
	ErrUnknownType  = errors.New("unknown connection type")
)

const clientFlow = "xtls-rprx-vision"

// PanelGateway описывает операции панели, нужные сценарию выдачи.
type PanelGateway interface {
	ListInbounds(ctx context.Context) ([]panel.Inbound, error)
	AddClient(ctx context.Context, inboundID int, client panel.RemoteClient) error
}

// Store описывает контракт хранилища пользователей и платежей.
type Store interface {
	SaveProvisionResult(ctx context.Context, res models.ProvisionResult) error
	SavePayment(ctx context.Context, payment models.Payment) (int, error)
}

// Alerter отправляет оператору уведомление о сбое, требующем ручного вмешательства.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// Options — параметры панели, влияющие на выдачу.
type Options struct {
	InboundID    int
	LinkHost     string
	PollAttempts int
	PollDelay    time.Duration
}

// Service — конечный автомат диалога выдачи подписки.
type Service struct {
	gateway  PanelGateway
	store    Store
	sessions *session.Store
	alerts   Alerter
	opts     Options
	log      *slog.Logger
}

// New создает сценарий выдачи подписки.
func New(gateway PanelGateway, store Store, sessions *session.Store, alerts Alerter, opts Options, log *slog.Logger) *Service {
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 5
	}
	if opts.PollDelay <= 0 {
		opts.PollDelay = 1500 * time.Millisecond
	}
	return &Service{
		gateway:  gateway,
		store:    store,
		sessions: sessions,
		alerts:   alerts,
		opts:     opts,
		log:      log,
	}
}

// Start переводит диалог пользователя к выбору типа подключения.
func (s *Service) Start(userID int64) session.Selection {
	s.sessions.Reset(userID)
	return s.sessions.Update(userID, func(sel *session.Selection) {
		sel.State = session.StateSelectingType
	})
}

// ChooseType фиксирует тип подключения и переводит диалог к выбору тарифа.
func (s *Service) ChooseType(userID int64, connectionType string) (session.Selection, error) {
	sel := s.sessions.Get(userID)
	if sel.State != session.StateSelectingType {
		return sel, ErrWrongState
	}
	if !models.ValidConnectionType(connectionType) {
		return sel, ErrUnknownType
	}
	return s.sessions.Update(userID, func(sel *session.Selection) {
		sel.ConnectionType = connectionType
		sel.State = session.StateSelectingPlan
	}), nil
}

// ChoosePlan фиксирует тариф и переводит диалог к вводу email.
func (s *Service) ChoosePlan(userID int64, planID string) (session.Selection, error) {
	sel := s.sessions.Get(userID)
	if sel.State != session.StateSelectingPlan {
		return sel, ErrWrongState
	}
	if models.FindPlan(planID) == nil {
		return sel, ErrUnknownPlan
	}
	return s.sessions.Update(userID, func(sel *session.Selection) {
		sel.PlanID = planID
		sel.State = session.StateAwaitingEmail
	}), nil
}

// SubmitEmail принимает email пользователя. Каждая отправка расходует попытку;
// на session.MaxEmailAttempts пользователь ещё получает обычный ответ, и только
// следующая отправка завершает диалог с ErrRateLimited.
func (s *Service) SubmitEmail(userID int64, email string) (session.Selection, error) {
	sel := s.sessions.Get(userID)
	if sel.State != session.StateAwaitingEmail {
		return sel, ErrWrongState
	}

	var limited bool
	sel = s.sessions.Update(userID, func(sel *session.Selection) {
		sel.EmailAttempts++
		if sel.EmailAttempts > session.MaxEmailAttempts {
			sel.State = session.StateFailed
			sel.Reason = session.ReasonRateLimited
			limited = true
		}
	})
	if limited {
		return sel, ErrRateLimited
	}

	if !emailx.Valid(email) {
		return sel, ErrInvalidEmail
	}

	return s.sessions.Update(userID, func(sel *session.Selection) {
		sel.Email = emailx.Normalize(email)
		sel.State = session.StateEmailValidated
	}), nil
}

// RequestPayment переводит диалог к оплате по явному действию пользователя.
// Повторные нажатия допустимы, но тоже расходуют попытки: после
// session.MaxPayAttempts следующее нажатие завершает диалог с ErrRateLimited.
func (s *Service) RequestPayment(userID int64) (session.Selection, error) {
	sel := s.sessions.Get(userID)
	if sel.State != session.StateEmailValidated && sel.State != session.StateAwaitingPayment {
		return sel, ErrWrongState
	}

	var limited bool
	sel = s.sessions.Update(userID, func(sel *session.Selection) {
		sel.PayAttempts++
		if sel.PayAttempts > session.MaxPayAttempts {
			sel.State = session.StateFailed
			sel.Reason = session.ReasonRateLimited
			limited = true
			return
		}
		sel.State = session.StateAwaitingPayment
	})
	if limited {
		return sel, ErrRateLimited
	}
	return sel, nil
}

// InvoicePayload собирает полезную нагрузку счета: "<тип>|<тариф>|<email>".
// По ней после оплаты восстанавливается контекст выдачи.
func (s *Service) InvoicePayload(userID int64) (string, *models.Plan, error) {
	sel := s.sessions.Get(userID)
	if sel.State != session.StateAwaitingPayment {
		return "", nil, ErrWrongState
	}
	plan := models.FindPlan(sel.PlanID)
	if plan == nil {
		return "", nil, ErrUnknownPlan
	}
	return sel.ConnectionType + "|" + sel.PlanID + "|" + sel.Email, plan, nil
}

// parsePayload разбирает полезную нагрузку счета. Ровно три непустых поля,
// иначе нагрузка считается испорченной и к панели обращаться нельзя.
func parsePayload(payload string) (connectionType, planID, email string, err error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return "", "", "", ErrBadPayload
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", "", "", ErrBadPayload
		}
	}
	return parts[0], parts[1], parts[2], nil
}

// HandlePaymentCompleted обрабатывает подтвержденную оплату: создает клиента
// на панели, дожидается его появления, синтезирует ссылку и сохраняет результат.
func (s *Service) HandlePaymentCompleted(ctx context.Context, userID int64, payload string, amount int) (*models.ProvisionResult, error) {
	const op = "provisioning.HandlePaymentCompleted"

	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	_, planID, email, err := parsePayload(payload)
	if err != nil {
		log.Error("malformed invoice payload", slog.String("payload", payload))
		metrics.ProvisionOutcomes.WithLabelValues("bad_payload").Inc()
		s.sessions.Fail(userID, session.ReasonBadPayload)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plan := models.FindPlan(planID)
	if plan == nil {
		log.Error("invoice payload references unknown plan", slog.String("plan_id", planID))
		metrics.ProvisionOutcomes.WithLabelValues("bad_payload").Inc()
		s.sessions.Fail(userID, session.ReasonBadPayload)
		return nil, fmt.Errorf("%s: %w", op, ErrBadPayload)
	}

	email = emailx.Normalize(email)
	paidAt := time.Now().Unix()
	expiryTime := time.Now().AddDate(0, 0, plan.PeriodDays).UnixMilli()

	payment := models.Payment{
		UserID:     userID,
		Email:      email,
		PlanID:     planID,
		Amount:     amount,
		PaidAt:     paidAt,
		ExpiryTime: expiryTime,
	}

	if err := s.ensureClient(ctx, email, expiryTime, userID); err != nil {
		return nil, s.failProvision(ctx, op, log, payment, err)
	}

	client, inbound, err := s.awaitClient(ctx, email)
	if err != nil {
		return nil, s.failProvision(ctx, op, log, payment, err)
	}

	link, err := panel.Synthesize(inbound, client, s.opts.LinkHost)
	if err != nil {
		return nil, s.failProvision(ctx, op, log, payment, err)
	}

	res := models.ProvisionResult{
		UserID:  userID,
		Email:   email,
		Link:    link,
		Payment: payment,
	}
	if err := s.store.SaveProvisionResult(ctx, res); err != nil {
		log.Error("failed to persist provision result", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.sessions.Update(userID, func(sel *session.Selection) {
		sel.State = session.StateLinkIssued
	})
	metrics.ProvisionOutcomes.WithLabelValues("issued").Inc()
	log.Info("subscription link issued", slog.String("email", email))
	return &res, nil
}

// ensureClient создает клиента на панели, если его там еще нет.
// Отказ панели с текстом ошибки (обычно дубликат email) не считается фатальным.
func (s *Service) ensureClient(ctx context.Context, email string, expiryTime int64, userID int64) error {
	inbounds, err := s.gateway.ListInbounds(ctx)
	if err == nil {
		if existing, _, rerr := panel.Resolve(inbounds, email); rerr == nil && existing != nil {
			s.log.Info("client already present on panel", slog.String("email", email))
			return nil
		}
	}

	spec := panel.RemoteClient{
		ID:         uuid.NewString(),
		Flow:       clientFlow,
		Email:      email,
		Enable:     true,
		ExpiryTime: expiryTime,
		TgID:       fmt.Sprint(userID),
	}

	err = s.gateway.AddClient(ctx, s.opts.InboundID, spec)
	if errors.Is(err, panel.ErrUnavailable) {
		// Один повтор на сетевой сбой, дальше сдаемся.
		err = s.gateway.AddClient(ctx, s.opts.InboundID, spec)
	}
	var apiErr *panel.APIError
	if errors.As(err, &apiErr) {
		// Панель отклонила добавление: клиент уже существует. Полагаемся на поиск.
		s.log.Warn("panel rejected add client", slog.String("msg", apiErr.Msg))
		return nil
	}
	return err
}

// awaitClient опрашивает панель, пока созданный клиент не станет видимым.
// Пауза между попытками растёт, чтобы не дёргать медленную панель.
func (s *Service) awaitClient(ctx context.Context, email string) (*panel.RemoteClient, *panel.Inbound, error) {
	var lastErr error
	delay := s.opts.PollDelay
	for attempt := 0; attempt < s.opts.PollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		inbounds, err := s.gateway.ListInbounds(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		client, inbound, err := panel.Resolve(inbounds, email)
		if err == nil {
			return client, inbound, nil
		}
		lastErr = err
	}
	if errors.Is(lastErr, panel.ErrNotFound) {
		return nil, nil, ErrLinkNotFound
	}
	return nil, nil, lastErr
}

// failProvision фиксирует оплату без ссылки, уведомляет оператора и
// переводит диалог в терминальный отказ с причиной.
func (s *Service) failProvision(ctx context.Context, op string, log *slog.Logger, payment models.Payment, cause error) error {
	reason, outcome := classify(cause)

	log.Error("provisioning failed after payment", sl.Err(cause), slog.String("reason", reason))
	metrics.ProvisionOutcomes.WithLabelValues(outcome).Inc()
	s.sessions.Fail(payment.UserID, reason)

	// Оплата состоялась, поэтому платеж сохраняется в любом случае.
	payment.ExpiryTime = 0
	if _, err := s.store.SavePayment(ctx, payment); err != nil {
		log.Error("failed to persist payment after provisioning failure", sl.Err(err))
	}

	if s.alerts != nil {
		msg := fmt.Sprintf("provisioning failed for user %d (%s): %v", payment.UserID, payment.Email, cause)
		if err := s.alerts.Alert(ctx, msg); err != nil {
			log.Error("failed to send operator alert", sl.Err(err))
		}
	}

	return fmt.Errorf("%s: %w", op, cause)
}

func classify(err error) (reason, outcome string) {
	switch {
	case errors.Is(err, ErrLinkNotFound):
		return session.ReasonLinkNotFound, "link_not_found"
	case errors.Is(err, panel.ErrAuth):
		return session.ReasonAuth, "auth"
	case errors.Is(err, panel.ErrUnavailable):
		return session.ReasonPanelUnavailable, "panel_unavailable"
	case errors.Is(err, panel.ErrMalformedInbound):
		return session.ReasonPanelUnavailable, "malformed_inbound"
	default:
		return session.ReasonPanelUnavailable, "error"
	}
}
