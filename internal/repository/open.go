package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/config"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DB, logger *logging.Logger) (Repository, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil
	case "sqlite":
		logger.Info("opening sqlite store", "path", cfg.Path)
		return NewSQLiteStore(ctx, cfg.Path)
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DB, logger *logging.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database not ready", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	store := NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("connected to postgres", "host", cfg.Host, "db", cfg.Name)
	return store, nil
}
