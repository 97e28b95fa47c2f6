// Package summary реализует HTTP-обработчик административной сводки.
package summary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/models"
)

// Service описывает интерфейс сервиса статистики.
type Service interface {
	Summary(ctx context.Context) (*models.UsageSummary, error)
}

// Counter описывает счётчики локального хранилища.
type Counter interface {
	CountUsers(ctx context.Context) (int, error)
	CountPayments(ctx context.Context) (int, error)
}

// Response — сводка по сервису: локальные счётчики плюс данные панели.
type Response struct {
	Users    int                  `json:"users"`
	Payments int                  `json:"payments"`
	Panel    *models.UsageSummary `json:"panel"`
}

// Handler обрабатывает запросы сводки по клиентам панели.
type Handler struct {
	log     *slog.Logger
	service Service
	counter Counter
}

// New создает обработчик сводки.
func New(log *slog.Logger, service Service, counter Counter) *Handler {
	return &Handler{log: log, service: service, counter: counter}
}

// ServeHTTP godoc
// @Summary Сводка по сервису
// @Description Возвращает число пользователей и платежей, активных клиентов панели, суммарный трафик и топ по использованию.
// @Tags Ops
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} summary.Response
// @Failure 502 {object} response.ErrorResponse "Панель недоступна"
// @Router /ops/summary [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ops.summary"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	users, err := h.counter.CountUsers(r.Context())
	if err != nil {
		log.Error("failed to count users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	paymentsTotal, err := h.counter.CountPayments(r.Context())
	if err != nil {
		log.Error("failed to count payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	panelSummary, err := h.service.Summary(r.Context())
	if err != nil {
		log.Error("failed to build summary", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("panel unavailable"))
		return
	}

	render.JSON(w, r, response.OKWithData(Response{
		Users:    users,
		Payments: paymentsTotal,
		Panel:    panelSummary,
	}))
}
