// Package workflows реализует HTTP-обработчики управления сценариями
// автоматизации: список, включение и выключение.
package workflows

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/workflow"
)

// Service описывает интерфейс клиента оркестратора сценариев.
type Service interface {
	ListWorkflows(ctx context.Context) ([]workflow.Workflow, error)
	Activate(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

// Handler обрабатывает запросы управления сценариями.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает обработчик управления сценариями.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// List godoc
// @Summary Список сценариев автоматизации
// @Tags Ops
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} workflow.Workflow
// @Failure 502 {object} response.ErrorResponse "Оркестратор недоступен"
// @Router /ops/workflows [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ops.workflows.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	list, err := h.service.ListWorkflows(r.Context())
	if err != nil {
		log.Error("failed to list workflows", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("workflow orchestrator unavailable"))
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// Activate godoc
// @Summary Включить сценарий
// @Tags Ops
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID сценария"
// @Success 200 {object} response.Response
// @Failure 502 {object} response.ErrorResponse "Оркестратор недоступен"
// @Router /ops/workflows/{id}/activate [post]
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// Deactivate godoc
// @Summary Выключить сценарий
// @Tags Ops
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID сценария"
// @Success 200 {object} response.Response
// @Failure 502 {object} response.ErrorResponse "Оркестратор недоступен"
// @Router /ops/workflows/{id}/deactivate [post]
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, active bool) {
	const op = "handlers.ops.workflows.toggle"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing workflow id"))
		return
	}

	var err error
	if active {
		err = h.service.Activate(r.Context(), id)
	} else {
		err = h.service.Deactivate(r.Context(), id)
	}
	if err != nil {
		log.Error("failed to toggle workflow", slog.String("id", id), sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("workflow orchestrator unavailable"))
		return
	}

	log.Info("workflow toggled", slog.String("id", id), slog.Bool("active", active))
	render.JSON(w, r, response.OKWithData(map[string]any{"id": id, "active": active}))
}
