package database

import (
	"context"
	"fmt"

	"github.com/cursolab/campus-backend/internal/config"
	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/rs/zerolog"
)

// OpenStore builds the repository store selected by cfg.StoreDriver.
// The returned close function releases the underlying connections.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repository.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), func() {}, nil
	case config.StoreDriverPostgres:
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
