// Package payments реализует HTTP-обработчик списка платежей пользователя.
package payments

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/models"
)

// Service описывает интерфейс хранилища платежей.
type Service interface {
	ListPayments(ctx context.Context, userID int64) ([]*models.Payment, error)
}

// Handler обрабатывает запросы списка платежей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает обработчик списка платежей.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Платежи пользователя
// @Description Возвращает все платежи пользователя, новые первыми.
// @Tags Ops
// @Produce  json
// @Security BearerAuth
// @Param user_id path int true "ID пользователя"
// @Success 200 {array} models.Payment
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /ops/payments/{user_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ops.payments"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		log.Error("invalid user id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	payments, err := h.service.ListPayments(r.Context(), userID)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.OKWithData(payments))
}
