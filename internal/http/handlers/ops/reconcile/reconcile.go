// Package reconcile реализует HTTP-обработчик ручного запуска сверки ссылок.
package reconcile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
)

// Service описывает интерфейс задания сверки.
type Service interface {
	Reconcile(ctx context.Context) (int, error)
}

// Handler обрабатывает запросы ручного запуска сверки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает обработчик запуска сверки.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Запустить сверку ссылок
// @Description Немедленно сверяет сохранённые ссылки пользователей с панелью.
// @Tags Ops
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Число обновлённых записей"
// @Failure 502 {object} response.ErrorResponse "Панель недоступна"
// @Router /ops/reconcile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ops.reconcile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	updated, err := h.service.Reconcile(r.Context())
	if err != nil {
		log.Error("reconcile failed", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("reconcile failed"))
		return
	}

	log.Info("reconcile triggered", slog.Int("updated", updated))
	render.JSON(w, r, response.OKWithData(map[string]any{"updated": updated}))
}
