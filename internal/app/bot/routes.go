// Package bot предоставляет маршруты операторского HTTP API.
package bot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/merik2009/vpn-shop-bot/internal/config"
	"github.com/merik2009/vpn-shop-bot/internal/http/handlers/health"
	"github.com/merik2009/vpn-shop-bot/internal/http/handlers/ops/login"
	"github.com/merik2009/vpn-shop-bot/internal/http/handlers/ops/payments"
	reconcilehandler "github.com/merik2009/vpn-shop-bot/internal/http/handlers/ops/reconcile"
	"github.com/merik2009/vpn-shop-bot/internal/http/handlers/ops/summary"
	"github.com/merik2009/vpn-shop-bot/internal/http/handlers/ops/workflows"
	"github.com/merik2009/vpn-shop-bot/internal/http/middlewarectx"
	"github.com/merik2009/vpn-shop-bot/internal/lib/jwt"
	reconcileservice "github.com/merik2009/vpn-shop-bot/internal/services/reconcile"
	statsservice "github.com/merik2009/vpn-shop-bot/internal/services/stats"
	"github.com/merik2009/vpn-shop-bot/internal/storage/repository"
	"github.com/merik2009/vpn-shop-bot/internal/workflow"
)

// RegisterRoutes регистрирует маршруты операторского API.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, jwtMaker jwt.Maker, db *repository.Storage, reconciler *reconcileservice.Service, statsService *statsservice.Service, workflowClient *workflow.Client) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, db.DB).ServeHTTP)
		r.Post("/ops/login", login.New(logger, cfg.Ops.Username, cfg.Ops.PasswordHash, jwtMaker).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/ops/reconcile", reconcilehandler.New(logger, reconciler).ServeHTTP)
			r.Get("/ops/summary", summary.New(logger, statsService, db).ServeHTTP)
			r.Get("/ops/payments/{user_id}", payments.New(logger, db).ServeHTTP)

			wf := workflows.New(logger, workflowClient)
			r.Get("/ops/workflows", wf.List)
			r.Post("/ops/workflows/{id}/activate", wf.Activate)
			r.Post("/ops/workflows/{id}/deactivate", wf.Deactivate)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
