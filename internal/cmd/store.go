package cmd

import (
	"context"
	"fmt"

	"github.com/newsdecades/newsdecades/internal/config"
	"github.com/newsdecades/newsdecades/internal/core/store"
)

// openStore opens the cache database and migrates it to the current schema.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate cache store (%s): %w", db.Driver(), err)
	}
	return db, nil
}
