package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/masjid-field-reports/api/swagger"
	"github.com/noah-isme/masjid-field-reports/internal/handler"
	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/repository"
	"github.com/noah-isme/masjid-field-reports/internal/server"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	"github.com/noah-isme/masjid-field-reports/pkg/cache"
	"github.com/noah-isme/masjid-field-reports/pkg/config"
	"github.com/noah-isme/masjid-field-reports/pkg/database"
	"github.com/noah-isme/masjid-field-reports/pkg/logger"
	"github.com/noah-isme/masjid-field-reports/pkg/recordid"
)

// @title Masjid Field Reports API
// @version 1.0.0
// @description Field reports of mosque evaluators: record tables, review and approval, entry forms and evaluation results
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}

	var cacheSvc *service.CacheService
	if cfg.Results.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Results.CacheTTL, logr, true)
			checks["redis"] = cacheRepo.Ping
		}
	}

	validate := validator.New()
	records := repository.NewRecordRepository(db)
	users := repository.NewUserRepository(db)

	references := service.NewReferenceService(repository.NewReferenceRepository(db), cacheSvc, users, logr)
	seedReference(ctx, cfg, references, logr)

	results := service.NewResultsService(records, references, cacheSvc, cfg.Results.CacheTTL, logr)
	dispatcher := service.NewDispatcher(service.DispatcherParams{
		Store:   records,
		Audit:   users,
		Results: results,
		Metrics: metrics,
		Logger:  logr,
		Config: service.DispatcherConfig{
			Workers:    cfg.Dispatch.Workers,
			BufferSize: cfg.Dispatch.BufferSize,
			MaxRetries: cfg.Dispatch.MaxRetries,
			RetryDelay: cfg.Dispatch.RetryDelay,
		},
	})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	formValidator := service.NewFormValidator(validate)
	review := service.NewReviewService(dispatcher, cfg.Sessions.TTL, logr)
	recordSvc := service.NewRecordService(service.RecordServiceParams{
		Records:    records,
		References: references,
		Review:     review,
		Dispatcher: dispatcher,
		Validator:  formValidator,
		Logger:     logr,
	})
	forms := service.NewFormService(service.FormServiceParams{
		IDs:        recordid.New(),
		References: references,
		Dispatcher: dispatcher,
		Validator:  formValidator,
		TTL:        cfg.Sessions.TTL,
		Logger:     logr,
	})
	exports := service.NewExportService(recordSvc, results, cfg.Export.PDFFontPath, logr)
	auth := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	wait := cfg.Dispatch.WaitTimeout
	router := server.NewRouter(server.Deps{
		Config:  cfg,
		Logger:  logr,
		Metrics: metrics,
		Auth:    auth,
	}, server.Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Reference: handler.NewReferenceHandler(references),
		Records:   handler.NewRecordHandler(recordSvc, exports, wait),
		Selection: handler.NewSelectionHandler(review, wait),
		Forms:     handler.NewFormHandler(forms, wait),
		Results:   handler.NewResultsHandler(results, exports),
		Metrics:   handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// seedReference loads REFERENCE_SHEET_PATH into the store on boot.
func seedReference(ctx context.Context, cfg *config.Config, references *service.ReferenceService, logr *zap.Logger) {
	if cfg.Reference.SheetPath == "" {
		return
	}
	f, err := os.Open(cfg.Reference.SheetPath)
	if err != nil {
		logr.Warn("reference workbook not readable", zap.String("path", cfg.Reference.SheetPath), zap.Error(err))
		return
	}
	defer f.Close()

	system := models.Actor{Role: models.RoleSuperAdmin, UserAgent: "api-gateway/seed"}
	if _, err := references.Import(ctx, system, f); err != nil {
		logr.Warn("reference seed failed", zap.String("path", cfg.Reference.SheetPath), zap.Error(err))
	}
}
