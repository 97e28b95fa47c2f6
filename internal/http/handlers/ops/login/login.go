// Package login реализует HTTP-обработчик входа оператора.
//
// Учетная запись оператора одна и задаётся конфигурацией: имя и bcrypt-хэш
// пароля. При успешной проверке возвращается JWT для остальных конечных
// точек операторского API.
package login

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/lib/jwt"
	"github.com/merik2009/vpn-shop-bot/internal/lib/password"
	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
)

// Request — структура входных данных для авторизации оператора.
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// Handler обрабатывает HTTP-запросы авторизации оператора.
type Handler struct {
	log          *slog.Logger
	username     string
	passwordHash string
	jwtMaker     jwt.Maker
	validate     *validator.Validate
}

// New создает обработчик входа для учетной записи оператора из конфигурации.
func New(log *slog.Logger, username, passwordHash string, jwtMaker jwt.Maker) *Handler {
	return &Handler{
		log:          log,
		username:     username,
		passwordHash: passwordHash,
		jwtMaker:     jwtMaker,
		validate:     validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Авторизация оператора
// @Description Проверяет учетные данные оператора и возвращает JWT.
// @Tags Ops
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные оператора"
// @Success 200 {object} map[string]any "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Router /ops/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ops.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if req.Username != h.username || password.CompareHash(h.passwordHash, req.Password) != nil {
		log.Warn("invalid operator credentials", slog.String("username", req.Username))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	token, err := h.jwtMaker.GenerateToken(req.Username, "operator")
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("operator logged in", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    token,
		"username": req.Username,
	}))
}
