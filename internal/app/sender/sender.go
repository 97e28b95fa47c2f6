// Package sender собирает процесс доставки рассылок: читает очереди
// и отправляет сообщения пользователям через Telegram.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/streadway/amqp"

	"github.com/merik2009/vpn-shop-bot/internal/config"
	"github.com/merik2009/vpn-shop-bot/internal/lib/rabbitmq"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	broadcastservice "github.com/merik2009/vpn-shop-bot/internal/services/broadcast"
	"github.com/merik2009/vpn-shop-bot/internal/storage/repository"
)

// App — процесс доставки рассылок.
type App struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	delivery *broadcastservice.Delivery
	db       *repository.Storage
	logger   *slog.Logger
}

// telegramMessenger адаптирует API Telegram к контракту доставщика.
type telegramMessenger struct {
	api *tgbotapi.BotAPI
}

func (t *telegramMessenger) SendText(chatID int64, text string) error {
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// New собирает зависимости процесса доставки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.Queues())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	delivery := broadcastservice.NewDelivery(db, &telegramMessenger{api: api}, cfg.Telegram.AdminIDs, logger)

	return &App{
		conn:     conn,
		ch:       ch,
		delivery: delivery,
		db:       db,
		logger:   logger,
	}, nil
}

// Run запускает потребителей очередей и ждёт отмены контекста.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumeMessages(ctx, a.ch, "vpnshop.broadcast", a.delivery.HandleBroadcast); err != nil {
		a.logger.Error("failed to start broadcast consumer", sl.Err(err))
		return err
	}
	if err := rabbitmq.ConsumeMessages(ctx, a.ch, "vpnshop.alerts", a.delivery.HandleAlert); err != nil {
		a.logger.Error("failed to start alerts consumer", sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
