// Package stats строит личный кабинет и административную сводку поверх
// снимка состояния панели. Снимок кэшируется, чтобы не ходить к панели
// на каждый запрос профиля.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/models"
	"github.com/merik2009/vpn-shop-bot/internal/panel"
)

const snapshotKey = "panel:inbounds"

// topSize — сколько клиентов попадает в топ по трафику.
const topSize = 10

// PanelGateway описывает операции панели, нужные статистике.
type PanelGateway interface {
	ListInbounds(ctx context.Context) ([]panel.Inbound, error)
}

// Cache — кэш снимков панели.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service отдаёт статистику использования по данным панели.
type Service struct {
	gateway     PanelGateway
	cache       Cache
	linkHost    string
	snapshotTTL time.Duration
	log         *slog.Logger
}

// New создает сервис статистики.
func New(gateway PanelGateway, cache Cache, linkHost string, snapshotTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		gateway:     gateway,
		cache:       cache,
		linkHost:    linkHost,
		snapshotTTL: snapshotTTL,
		log:         log,
	}
}

// snapshot возвращает inbound'ы панели, по возможности из кэша.
func (s *Service) snapshot(ctx context.Context) ([]panel.Inbound, error) {
	var cached []panel.Inbound
	if s.cache != nil {
		found, err := s.cache.Get(snapshotKey, &cached)
		if err != nil {
			s.log.Warn("failed to read panel snapshot from cache", sl.Err(err))
		} else if found {
			return cached, nil
		}
	}

	inbounds, err := s.gateway.ListInbounds(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(snapshotKey, inbounds, s.snapshotTTL); err != nil {
			s.log.Warn("failed to cache panel snapshot", sl.Err(err))
		}
	}
	return inbounds, nil
}

// InvalidateSnapshot сбрасывает кэшированный снимок. Вызывается после выдачи
// нового клиента, чтобы профиль сразу отражал свежие данные.
func (s *Service) InvalidateSnapshot() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(snapshotKey); err != nil {
		s.log.Warn("failed to invalidate panel snapshot", sl.Err(err))
	}
}

// Usage возвращает состояние клиента панели по email пользователя.
func (s *Service) Usage(ctx context.Context, email string) (*models.UsageInfo, error) {
	const op = "stats.Usage"

	inbounds, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client, inbound, err := panel.Resolve(inbounds, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info := &models.UsageInfo{
		Email:   client.Email,
		Enabled: client.Enable,
	}

	if stat := panel.Stat(inbound, email); stat != nil {
		info.UsedBytes = stat.Up + stat.Down
		info.TotalBytes = stat.Total
		info.Enabled = stat.Enable
		if stat.ExpiryTime > 0 {
			t := time.UnixMilli(stat.ExpiryTime)
			info.ExpiresAt = &t
		}
	} else if client.ExpiryTime > 0 {
		t := time.UnixMilli(client.ExpiryTime)
		info.ExpiresAt = &t
	}

	if link, err := panel.Synthesize(inbound, client, s.linkHost); err == nil {
		info.Link = link
	} else if !errors.Is(err, panel.ErrMalformedInbound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return info, nil
}

// Summary собирает административную сводку по всем клиентам панели.
func (s *Service) Summary(ctx context.Context) (*models.UsageSummary, error) {
	const op = "stats.Summary"

	inbounds, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &models.UsageSummary{}
	var top []models.UsageTop

	for i := range inbounds {
		for _, stat := range inbounds[i].ClientStats {
			summary.Total++
			if stat.Enable {
				summary.Active++
			} else {
				summary.Inactive++
			}
			used := stat.Up + stat.Down
			summary.TrafficBytes += used
			top = append(top, models.UsageTop{Email: stat.Email, UsedBytes: used})
		}
	}

	sort.Slice(top, func(i, j int) bool { return top[i].UsedBytes > top[j].UsedBytes })
	if len(top) > topSize {
		top = top[:topSize]
	}
	summary.TopByTraffic = top

	return summary, nil
}
