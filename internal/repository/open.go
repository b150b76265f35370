package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open builds the Store selected by cfg.Driver and applies its schema.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.FilePath)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.DSN)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := NewPGStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
