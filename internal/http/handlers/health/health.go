// Package health реализует конечную точку проверки живости сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
)

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping() error
}

// Handler обрабатывает запросы проверки живости.
type Handler struct {
	log *slog.Logger
	db  Pinger
}

// New создает обработчик проверки живости.
func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{log: log, db: db}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.log.Error("database is not reachable", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("database unavailable"))
			return
		}
	}
	render.JSON(w, r, response.OKWithData("alive"))
}
