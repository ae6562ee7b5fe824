package store

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/quotehunter/internal/config"
)

// Open builds the gateway selected by cfg.Store.Driver. The returned close
// function releases any pool and is safe to call once.
func Open(ctx context.Context, cfg *config.Config) (Gateway, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(pool), pool.Close, nil
	case "directus":
		return NewDirectusStore(cfg.Directus, cfg.Store.Timeout), func() {}, nil
	case "memory":
		return NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
