// Package storage defines the key-value persistence seam used by the virtual
// filesystem and the backends that implement it.
package storage

import (
	"context"
	"fmt"

	"github.com/hpungsan/shadowscript/internal/config"
	"github.com/hpungsan/shadowscript/internal/db"
)

// KV is a string-keyed byte store.
// Implementations wrap backend failures as STORAGE_UNAVAILABLE.
type KV interface {
	// Get returns the value under key; found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend selected by cfg.StorageBackend.
// The sqlite backend lives under baseDir.
func Open(cfg *config.Config, baseDir string) (KV, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendRedis:
		return NewRedis(cfg.RedisAddr), nil
	case config.BackendSQLite, "":
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(database, cfg)
		return db.NewKV(database), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
