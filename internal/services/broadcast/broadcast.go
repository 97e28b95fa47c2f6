// Package broadcast публикует массовые рассылки и операторские уведомления
// в очередь и доставляет их получателям в отдельном процессе.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/merik2009/vpn-shop-bot/internal/lib/rabbitmq"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
)

// Message — массовая рассылка всем пользователям бота.
type Message struct {
	Text    string    `json:"text"`
	AdminID int64     `json:"admin_id"`
	SentAt  time.Time `json:"sent_at"`
}

// Alert — уведомление операторам о сбое.
type Alert struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Publisher кладёт рассылки и уведомления в очередь.
type Publisher struct {
	channel *amqp.Channel
	log     *slog.Logger
}

// NewPublisher создает издателя поверх открытого канала очереди.
func NewPublisher(channel *amqp.Channel, log *slog.Logger) *Publisher {
	return &Publisher{channel: channel, log: log}
}

// Broadcast ставит рассылку в очередь. Доставкой занимается отдельный процесс.
func (p *Publisher) Broadcast(adminID int64, text string) error {
	const op = "broadcast.Broadcast"

	msg := Message{Text: text, AdminID: adminID, SentAt: time.Now().UTC()}
	if err := rabbitmq.PublishMessage(p.channel, rabbitmq.Exchange, "broadcast", msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Info("broadcast queued", slog.Int64("admin_id", adminID))
	return nil
}

// Alert ставит операторское уведомление в очередь.
func (p *Publisher) Alert(_ context.Context, text string) error {
	const op = "broadcast.Alert"

	msg := Alert{Text: text, At: time.Now().UTC()}
	if err := rabbitmq.PublishMessage(p.channel, rabbitmq.Exchange, "alert", msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UserSource отдаёт получателей массовой рассылки.
type UserSource interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Messenger доставляет текст конкретному пользователю чат-платформы.
type Messenger interface {
	SendText(chatID int64, text string) error
}

// Delivery — потребитель очереди рассылок.
type Delivery struct {
	users     UserSource
	messenger Messenger
	adminIDs  []int64
	log       *slog.Logger
}

// NewDelivery создает доставщик рассылок и уведомлений.
func NewDelivery(users UserSource, messenger Messenger, adminIDs []int64, log *slog.Logger) *Delivery {
	return &Delivery{
		users:     users,
		messenger: messenger,
		adminIDs:  adminIDs,
		log:       log,
	}
}

// HandleBroadcast рассылает сообщение всем пользователям. Сбой доставки
// одному получателю не прерывает рассылку остальным.
func (d *Delivery) HandleBroadcast(body []byte) error {
	const op = "broadcast.HandleBroadcast"

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ids, err := d.users.ListUserIDs(context.Background())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, id := range ids {
		if err := d.messenger.SendText(id, msg.Text); err != nil {
			d.log.Warn("failed to deliver broadcast", sl.UserID(id), sl.Err(err))
			continue
		}
		sent++
	}
	d.log.Info("broadcast delivered", slog.Int("recipients", len(ids)), slog.Int("sent", sent))
	return nil
}

// HandleAlert доставляет операторское уведомление администраторам.
func (d *Delivery) HandleAlert(body []byte) error {
	const op = "broadcast.HandleAlert"

	var msg Alert
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, id := range d.adminIDs {
		if err := d.messenger.SendText(id, "⚠️ "+msg.Text); err != nil {
			d.log.Warn("failed to deliver alert", sl.UserID(id), sl.Err(err))
		}
	}
	return nil
}
