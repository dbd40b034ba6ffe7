// Package factory opens the configured store backend. Callers receive the
// store.Storage interface and never learn which backend serves them.
package factory

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
	pgstore "github.com/OFFIS-RIT/atlas/backend/pkg/store/pgx"
	litestore "github.com/OFFIS-RIT/atlas/backend/pkg/store/sqlite"
)

// New opens the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.Config) (store.Storage, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return pgstore.New(ctx, cfg.DatabaseURL)
	case config.BackendSQLite:
		return litestore.New(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
