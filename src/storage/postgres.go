package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"request-monitor/src/helpers"
	"request-monitor/src/logger"
	"request-monitor/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	sqlStore
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) *PostgresDB {
	return &PostgresDB{sqlStore{Config: cfg, Logger: log, numbered: true}}
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres failed", err)
	}

	err = helpers.RetryWithBackoff(ctx, d.Logger, "postgres ping", d.Config.Storage.MaxRetries, time.Second, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if err := d.createTables(ctx); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS request_log (
			id BIGSERIAL PRIMARY KEY,
			service TEXT NOT NULL,
			username TEXT,
			operation TEXT,
			file_name TEXT,
			status TEXT,
			queued_at BIGINT NOT NULL DEFAULT 0,
			dispatched_at BIGINT,
			completed_at BIGINT NOT NULL DEFAULT 0,
			queue_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			latency_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			bytes BIGINT NOT NULL DEFAULT 0,
			message TEXT
		);
	`
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return helpers.NewDatabaseError("failed to create request_log", err)
	}

	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_request_log_queued ON request_log (service, queued_at)",
		"CREATE INDEX IF NOT EXISTS idx_request_log_completed ON request_log (service, completed_at)",
	} {
		if _, err := d.DB.ExecContext(ctx, idx); err != nil {
			return helpers.NewDatabaseError(fmt.Sprintf("failed to create index (%s)", idx), err)
		}
	}

	return nil
}
