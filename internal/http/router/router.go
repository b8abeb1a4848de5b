package router

import (
	"encoding/json"
	"net/http"

	"github.com/demarchi-food/pricecontrol-api/internal/config"
	"github.com/demarchi-food/pricecontrol-api/internal/database"
	"github.com/demarchi-food/pricecontrol-api/internal/erp"
	"github.com/demarchi-food/pricecontrol-api/internal/http/handler"
	"github.com/demarchi-food/pricecontrol-api/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/demarchi-food/pricecontrol-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	erpClient           *erp.Client
	rateLimiter         *middleware.RateLimiter
	priceControlHandler *handler.PriceControlHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	erpClient *erp.Client,
	rateLimiter *middleware.RateLimiter,
	priceControlHandler *handler.PriceControlHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		erpClient:           erpClient,
		rateLimiter:         rateLimiter,
		priceControlHandler: priceControlHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger, rt.cfg.App.Environment))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		// Check the upstream order management system
		erpStatus := rt.erpClient.HealthCheck(r.Context())
		checks["erp"] = erpStatus
		if erpStatus.Status == "unhealthy" {
			allHealthy = false
		}

		// Check the run log database, when configured
		if rt.db != nil {
			if err := database.HealthCheck(rt.db); err != nil {
				rt.logger.Error("Database health check failed", zap.Error(err))
				checks["database"] = map[string]interface{}{
					"status": "unhealthy",
					"error":  err.Error(),
				}
				allHealthy = false
			} else {
				checks["database"] = map[string]interface{}{
					"status": "healthy",
				}
			}
		} else {
			checks["database"] = map[string]interface{}{
				"status": "disabled",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/price-control", func(r chi.Router) {
			r.Get("/", rt.priceControlHandler.GetReport)
			r.Get("/runs", rt.priceControlHandler.ListRuns)
		})
	})

	return r
}
