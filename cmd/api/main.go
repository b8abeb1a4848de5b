package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demarchi-food/pricecontrol-api/docs"
	"github.com/demarchi-food/pricecontrol-api/internal/config"
	"github.com/demarchi-food/pricecontrol-api/internal/database"
	"github.com/demarchi-food/pricecontrol-api/internal/erp"
	"github.com/demarchi-food/pricecontrol-api/internal/http/handler"
	"github.com/demarchi-food/pricecontrol-api/internal/http/middleware"
	"github.com/demarchi-food/pricecontrol-api/internal/http/router"
	"github.com/demarchi-food/pricecontrol-api/internal/jobs"
	"github.com/demarchi-food/pricecontrol-api/internal/logger"
	"github.com/demarchi-food/pricecontrol-api/internal/repository"
	"github.com/demarchi-food/pricecontrol-api/internal/service"
	"go.uber.org/zap"
)

// @title De Marchi Price Control API
// @version 1.0
// @description Monthly pricing variance analysis against customer price agreements

// @contact.name API Support
// @contact.email it@demarchifood.it

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "pricecontrol-staging.demarchifood.it"
	case "production":
		docs.SwaggerInfo.Host = "pricecontrol.demarchifood.it"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := cfg.ValidateERP(); err != nil {
		return err
	}

	// Connect to the run log database (optional - the analysis itself never
	// touches it, so a missing database only disables the run history)
	db, err := database.NewDatabase(&cfg.Database)
	var runRepo *repository.AnalysisRunRepository
	if err != nil {
		log.Warn("Run log database unavailable, continuing without run history",
			zap.Error(err),
		)
		db = nil
	} else {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate run log schema: %w", err)
		}
		runRepo = repository.NewAnalysisRunRepository(db)
		log.Info("Run log database connected",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)
	}

	// Connect to the order management system (required)
	erpClient, err := erp.NewClient(&cfg.ERP, log)
	if err != nil {
		return fmt.Errorf("failed to connect to order management system: %w", err)
	}

	// Initialize services
	priceControlService := service.NewPriceControlService(erpClient, cfg.ERP.CompanyID, runRepo, log)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	priceControlHandler := handler.NewPriceControlHandler(priceControlService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		erpClient,
		rateLimiter,
		priceControlHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.MonthlyReportEnabled {
		scheduler = jobs.NewScheduler(log)

		if err := jobs.RegisterMonthlyReportJob(
			scheduler,
			priceControlService,
			log,
			cfg.Jobs.MonthlyReportCron,
			cfg.Jobs.MonthlyReportTimeoutDuration(),
		); err != nil {
			log.Error("Failed to register monthly report job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with monthly report job",
				zap.String("cron_expr", cfg.Jobs.MonthlyReportCron),
				zap.Duration("timeout", cfg.Jobs.MonthlyReportTimeoutDuration()),
			)
		}
	} else {
		log.Info("Scheduled monthly report disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		erpClient.Close()

		log.Info("Server stopped gracefully")
	}

	return nil
}
