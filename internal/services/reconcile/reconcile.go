// Package reconcile выравнивает сохранённые ссылки пользователей с текущим
// состоянием панели. Задание только обновляет записи и никогда их не удаляет.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/metrics"
	"github.com/merik2009/vpn-shop-bot/internal/models"
	"github.com/merik2009/vpn-shop-bot/internal/panel"
)

// PanelGateway описывает операции панели, нужные сверке.
type PanelGateway interface {
	ListInbounds(ctx context.Context) ([]panel.Inbound, error)
}

// Store описывает контракт хранилища для сверки ссылок.
type Store interface {
	ListUsersWithEmail(ctx context.Context) ([]*models.User, error)
	UpdateLink(ctx context.Context, userID int64, link string) error
}

// Service — периодическое задание сверки ссылок.
type Service struct {
	gateway  PanelGateway
	store    Store
	linkHost string
	log      *slog.Logger
}

// New создает задание сверки.
func New(gateway PanelGateway, store Store, linkHost string, log *slog.Logger) *Service {
	return &Service{
		gateway:  gateway,
		store:    store,
		linkHost: linkHost,
		log:      log,
	}
}

// Reconcile один раз сверяет всех пользователей с email и возвращает число
// обновлённых записей. Пользователи, не найденные на панели, пропускаются.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	const op = "reconcile.Reconcile"

	log := s.log.With(slog.String("op", op))

	inbounds, err := s.gateway.ListInbounds(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	users, err := s.store.ListUsersWithEmail(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	updated := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		client, inbound, err := panel.Resolve(inbounds, user.Email)
		if err != nil {
			if errors.Is(err, panel.ErrNotFound) {
				log.Debug("user absent on panel, keeping record", sl.UserID(user.ID))
				continue
			}
			log.Warn("failed to resolve user on panel", sl.UserID(user.ID), sl.Err(err))
			continue
		}

		link, err := panel.Synthesize(inbound, client, s.linkHost)
		if err != nil {
			log.Warn("failed to synthesize link", sl.UserID(user.ID), sl.Err(err))
			continue
		}
		if link == user.Link {
			continue
		}

		if err := s.store.UpdateLink(ctx, user.ID, link); err != nil {
			log.Error("failed to update link", sl.UserID(user.ID), sl.Err(err))
			continue
		}
		updated++
	}

	metrics.ReconcileUpdated.Set(float64(updated))
	log.Info("reconcile pass finished",
		slog.Int("users", len(users)),
		slog.Int("updated", updated))
	return updated, nil
}

// Run запускает сверку по расписанию до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconcile job stopped")
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil {
				s.log.Error("reconcile pass failed", sl.Err(err))
			}
		}
	}
}
