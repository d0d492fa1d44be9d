// cmd/assistant/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ledger-assistant/internal/agents/datenorm"
	"ledger-assistant/internal/agents/disambiguate"
	"ledger-assistant/internal/agents/followup"
	"ledger-assistant/internal/agents/format"
	"ledger-assistant/internal/agents/query"
	"ledger-assistant/internal/agents/validate"
	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/database"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/observability"
	"ledger-assistant/internal/ledger"
	"ledger-assistant/internal/nlp"
	"ledger-assistant/internal/orchestrator"
	"ledger-assistant/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting ledger assistant...",
		zap.String("name", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Load the ledger ---
	var store *ledger.Store
	switch cfg.Ledger.Source {
	case "postgres":
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		store, err = ledger.LoadPostgres(ctx, pg.DB, cfg.Ledger.Table)
		if err != nil {
			zapLog.Fatal("ledger load failed", zap.Error(err))
		}
	case "csv":
		store, err = ledger.LoadCSV(cfg.Ledger.CSVPath)
		if err != nil {
			zapLog.Fatal("ledger load failed", zap.Error(err))
		}
	default:
		zapLog.Fatal("unknown ledger source", zap.String("source", cfg.Ledger.Source))
	}
	zapLog.Info("Ledger loaded",
		zap.Int("records", store.Len()),
		zap.Int("properties", len(store.Properties())),
		zap.Int("tenants", len(store.Tenants())),
	)

	// --- Optional Redis result cache ---
	var cache *query.Cache
	if cfg.Database.Redis.Enabled {
		var rds *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rds, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rds.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rds.Close()
		zapLog.Info("Redis connected successfully")

		cache = query.NewCache(rds.Client, time.Duration(cfg.Pipeline.CacheTTL)*time.Second, log)
	} else {
		zapLog.Info("Redis disabled, query results will not be cached")
	}

	// --- NL collaborator client ---
	nlClient := nlp.NewClient(cfg.NLP, log)

	// --- Assemble the pipeline ---
	pipeline := orchestrator.New(orchestrator.Deps{
		Followup:      followup.New(nlClient, log),
		Classifier:    nlClient,
		Extractor:     nlClient,
		Normalizer:    datenorm.New(cfg.Pipeline, log),
		Validator:     validate.New(store, cfg.Pipeline, log),
		Disambiguator: disambiguate.New(log),
		Engine:        query.New(store, cache, log),
		Formatter:     format.New(nlClient, log),
		Sessions:      orchestrator.NewSessionManager(cfg.Pipeline.HistoryWindow),
		Observability: obs,
		Logger:        log,
	})

	srv := server.New(pipeline, store, cfg.Server, log)
	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	zapLog.Info("HTTP server started", zap.Int("port", cfg.Server.Port))

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Ledger assistant stopped gracefully")
}
