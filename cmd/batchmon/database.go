package main

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	batches "github.com/jdziat/simple-durable-batches"
	"github.com/jdziat/simple-durable-batches/pkg/storage"
)

// openStorage opens the configured database and returns a ready store.
func openStorage(ctx context.Context, cfg DatabaseConfig) (*batches.GormStorage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	var opts []batches.PoolOption
	if cfg.MaxOpenConns > 0 {
		opts = append(opts, storage.MaxOpenConns(cfg.MaxOpenConns))
	}
	if cfg.MaxIdleConns > 0 {
		opts = append(opts, storage.MaxIdleConns(cfg.MaxIdleConns))
	}
	if cfg.ConnMaxLifetime > 0 {
		opts = append(opts, storage.ConnMaxLifetime(cfg.ConnMaxLifetime))
	}

	store, err := batches.NewGormStorageWithPool(db, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure pool: %w", err)
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, nil
}
