package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
	"github.com/xkilldash9x/finding-dedup/internal/config"
	"github.com/xkilldash9x/finding-dedup/internal/observability"
	"github.com/xkilldash9x/finding-dedup/internal/store"
)

// resultStore is the part of the store the commands use.
type resultStore interface {
	SaveRun(ctx context.Context, result *schemas.RunResult) error
	RunsByTitle(ctx context.Context, title string) ([]store.RunSummary, error)
}

// storeProvider creates a result store. Tests inject a fake instead of a
// live database connection.
type storeProvider interface {
	// Create returns the store and a cleanup function releasing its resources.
	Create(ctx context.Context, cfg config.Interface) (resultStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the provider connecting to PostgreSQL.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to database.url and makes sure the schema exists.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (resultStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database().URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (DEDUP_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}
