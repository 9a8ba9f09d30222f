package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_exchange_backend/internal/auction"
	"lead_exchange_backend/internal/auction/client"
	txrepo "lead_exchange_backend/internal/auction/repository"
	"lead_exchange_backend/internal/audit"
	"lead_exchange_backend/internal/buyers/eligibility"
	buyersrepo "lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/events"
	leadsrepo "lead_exchange_backend/internal/leads/repository"
	"lead_exchange_backend/internal/scheduler"
	"lead_exchange_backend/platform/config"
	"lead_exchange_backend/platform/db"
	"lead_exchange_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting auction worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	audit.NewModule(log).RegisterHandlers(eventBus)

	leadsRepo := leadsrepo.New(pool)
	ledger := txrepo.New(pool)
	resolver := eligibility.NewResolver(buyersrepo.New(pool))
	caller := client.New(cfg.GetMaxRetryAttempts(), log)
	coordinator := auction.NewCoordinator(resolver, leadsRepo, ledger, caller, eventBus, cfg, log)

	worker, err := scheduler.NewWorker(cfg, leadsRepo, coordinator, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	schedClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer schedClient.Close()

	scanner := scheduler.NewPendingScanner(schedClient, cfg.GetPendingScanInterval(), log)
	go scanner.Run(ctx)

	worker.Run(ctx)
	log.Info("auction worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
