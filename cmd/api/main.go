package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanwahyu/budget-review/internal/application"
	"github.com/bryanwahyu/budget-review/internal/application/analysis"
	apppilot "github.com/bryanwahyu/budget-review/internal/application/pilot"
	"github.com/bryanwahyu/budget-review/internal/application/review"
	"github.com/bryanwahyu/budget-review/internal/config"
	"github.com/bryanwahyu/budget-review/internal/domain/budget"
	"github.com/bryanwahyu/budget-review/internal/infra/ai/provider"
	"github.com/bryanwahyu/budget-review/internal/infra/db"
	"github.com/bryanwahyu/budget-review/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/budget-review/internal/infra/storage"
	"github.com/bryanwahyu/budget-review/internal/logger"
	"github.com/bryanwahyu/budget-review/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := map[string]middleware.HealthChecker{}

	store, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	analysisSvc := &analysis.Service{
		Parser:     budget.NewParser(),
		Aggregator: budget.NewAggregator(cfg.Heuristics),
		Clock:      application.SystemClock{},
		DemoTokens: cfg.Demo.Tokens,
	}
	pilotSvc := &apppilot.Service{Clock: application.SystemClock{}}

	if store != nil {
		analysisSvc.Repo = store.Analyses
		pilotSvc.Repo = store.Pilots
		checks["database"] = &middleware.DatabaseHealthChecker{DB: store.DB}
		log.Info().Str("driver", cfg.Database.Driver).Msg("persistence enabled")
	} else {
		log.Warn().Msg("no database configured, analyses will not be stored")
	}

	if cfg.Minio.Enabled {
		archive, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		analysisSvc.Archive = archive
		checks["archive"] = archive
	}

	client, err := provider.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ai client: %w", err)
	}
	if client == nil {
		log.Warn().Str("provider", cfg.AI.Provider).Msg("no narrative API key, reviews will use fallback values")
	}
	analysisSvc.Reviewer = review.NewRequester(client)

	if len(cfg.Auth.APIKeys) == 0 {
		log.Warn().Msg("auth.apiKeys is empty, analysis endpoints will reject every request")
	}

	handler := httpserver.NewRouter(analysisSvc, pilotSvc, httpserver.Options{
		Logger:            log,
		APIKeys:           cfg.Auth.APIKeys,
		CORSOrigins:       cfg.Server.CORSOrigins,
		MaxUploadBytes:    cfg.Server.MaxUploadMB << 20,
		RateLimitCapacity: cfg.RateLimit.Capacity,
		RateLimitRefill:   cfg.RateLimit.RefillPerSecond,
		HealthChecks:      checks,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx2)
}
