package storage

import (
	"context"
	"fmt"

	"request-monitor/src/interfaces"
	"request-monitor/src/logger"
	"request-monitor/src/models"
)

// -----------------------------------------------------------------------------

// Open builds the configured backend, initializes it and wraps it in a
// circuit breaker.
func Open(ctx context.Context, cfg *models.MConfig, log *logger.Logger) (*BreakerDB, error) {
	var db interfaces.IDatabase

	switch cfg.Storage.DBType {
	case "postgres":
		db = NewPostgresDB(cfg, log.Named("PostgresDB"))
	case "sqlite", "":
		db = NewSQLiteDB(cfg, log.Named("SQLiteDB"))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}

	if err := db.Initialize(ctx); err != nil {
		return nil, err
	}

	return NewBreakerDB(db, cfg.Breaker, log.Named("Breaker")), nil
}
