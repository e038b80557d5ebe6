package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PoolConfig holds database/sql connection pool settings.
type PoolConfig struct {
	// MaxOpenConns limits open connections. Zero means unlimited.
	// Default: 25 (1 for SQLite)
	MaxOpenConns int

	// MaxIdleConns is how many idle connections stay in the pool.
	// Default: 10 (1 for SQLite)
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection may be reused.
	// Zero keeps connections forever.
	// Default: 5 minutes (unset for SQLite)
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime is how long a connection may sit idle before it is closed.
	// Zero never closes idle connections for age.
	// Default: 1 minute (unset for SQLite)
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns defaults suited to a PostgreSQL-backed worker fleet:
// 25 open, 10 idle, 5 minute lifetime, 1 minute idle time.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// SQLitePoolConfig serializes access through one long-lived connection.
// SQLite allows one writer at a time, every monitor tick writes inside a
// transaction, and an in-memory database lives only as long as its connection.
func SQLitePoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}
}

// poolConfigFor picks the starting configuration for a dialect.
func poolConfigFor(db *gorm.DB) PoolConfig {
	if db != nil && db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return SQLitePoolConfig()
	}
	return DefaultPoolConfig()
}

// PoolOption configures connection pool settings.
type PoolOption interface {
	applyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) applyPool(c *PoolConfig) { f(c) }

// WithPoolConfig replaces every pool setting at once.
func WithPoolConfig(cfg PoolConfig) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		*c = cfg
	})
}

// MaxOpenConns sets the maximum number of open connections.
// Set to 0 for unlimited (not recommended for production).
func MaxOpenConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.MaxOpenConns = n
	})
}

// MaxIdleConns sets the maximum number of idle connections.
func MaxIdleConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.MaxIdleConns = n
	})
}

// ConnMaxLifetime sets the maximum connection lifetime.
func ConnMaxLifetime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.ConnMaxLifetime = d
	})
}

// ConnMaxIdleTime sets the maximum idle time for connections.
func ConnMaxIdleTime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.ConnMaxIdleTime = d
	})
}

// ConfigurePool applies pool configuration to a GORM database connection
// and returns what was applied. Options are layered over the dialect's
// starting point: SQLitePoolConfig for SQLite, DefaultPoolConfig otherwise.
func ConfigurePool(db *gorm.DB, opts ...PoolOption) (PoolConfig, error) {
	config := poolConfigFor(db)
	for _, opt := range opts {
		opt.applyPool(&config)
	}

	if db == nil {
		return config, fmt.Errorf("configure pool: nil database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return config, fmt.Errorf("configure pool: %w", err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	return config, nil
}

// NewGormStorageWithPool creates a GORM-backed storage with connection pooling configured.
//
// Example:
//
//	storage, err := NewGormStorageWithPool(db,
//	    MaxOpenConns(50),
//	    MaxIdleConns(20),
//	)
func NewGormStorageWithPool(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	if _, err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return NewGormStorage(db), nil
}
