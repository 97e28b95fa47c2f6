// Package bot собирает основной процесс: Telegram-бот, операторский
// HTTP-сервер и фоновую сверку ссылок с панелью.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/streadway/amqp"

	"github.com/merik2009/vpn-shop-bot/internal/bot"
	"github.com/merik2009/vpn-shop-bot/internal/cache"
	"github.com/merik2009/vpn-shop-bot/internal/config"
	"github.com/merik2009/vpn-shop-bot/internal/lib/jwt"
	"github.com/merik2009/vpn-shop-bot/internal/lib/rabbitmq"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/migrations"
	"github.com/merik2009/vpn-shop-bot/internal/panel"
	broadcastservice "github.com/merik2009/vpn-shop-bot/internal/services/broadcast"
	provisioningservice "github.com/merik2009/vpn-shop-bot/internal/services/provisioning"
	reconcileservice "github.com/merik2009/vpn-shop-bot/internal/services/reconcile"
	statsservice "github.com/merik2009/vpn-shop-bot/internal/services/stats"
	"github.com/merik2009/vpn-shop-bot/internal/session"
	"github.com/merik2009/vpn-shop-bot/internal/storage/repository"
	"github.com/merik2009/vpn-shop-bot/internal/workflow"
)

// App — основной процесс бота.
type App struct {
	server      *http.Server
	telegramBot *bot.Bot
	reconciler  *reconcileservice.Service
	interval    time.Duration
	db          *repository.Storage
	conn        *amqp.Connection
	ch          *amqp.Channel
	logger      *slog.Logger
}

// New собирает все зависимости основного процесса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
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
	publisher := broadcastservice.NewPublisher(ch, logger)

	sessionMgr := panel.NewSessionManager(cfg.Panel.BaseURL, cfg.Panel.Username, cfg.Panel.Password, cfg.Panel.Timeout, logger)
	panelClient := panel.NewClient(cfg.Panel.BaseURL, sessionMgr, cfg.Panel.Timeout, logger)

	sessions := session.NewStore()
	provisioner := provisioningservice.New(panelClient, db, sessions, publisher, provisioningservice.Options{
		InboundID:    cfg.Panel.InboundID,
		LinkHost:     cfg.Panel.LinkHost,
		PollAttempts: cfg.Panel.PollAttempts,
		PollDelay:    cfg.Panel.PollDelay,
	}, logger)
	statsService := statsservice.New(panelClient, cacheRedis, cfg.Panel.LinkHost, cfg.RedisConnection.SnapshotTTL, logger)
	reconciler := reconcileservice.New(panelClient, db, cfg.Panel.LinkHost, logger)
	workflowClient := workflow.NewClient(cfg.Workflow.BaseURL, cfg.Workflow.APIKey, cfg.Workflow.Timeout)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	telegramBot := bot.New(api, provisioner, statsService, db, sessions, publisher, reconciler, bot.Options{
		PaymentProviderToken: cfg.Telegram.PaymentProviderToken,
		Currency:             cfg.Telegram.Currency,
		AdminIDs:             cfg.Telegram.AdminIDs,
	}, logger)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, jwtMaker, db, reconciler, statsService, workflowClient)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server:      srv,
		telegramBot: telegramBot,
		reconciler:  reconciler,
		interval:    cfg.Reconcile.Interval,
		db:          db,
		conn:        conn,
		ch:          ch,
		logger:      logger,
	}, nil
}

// Run запускает бота, HTTP-сервер и фоновую сверку до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	go func() {
		errCh <- a.telegramBot.Run(ctx)
	}()

	go a.reconciler.Run(ctx, a.interval)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.closeResources()
		return err
	}
}

func (a *App) closeResources() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
