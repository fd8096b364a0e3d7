package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"request-monitor/src/helpers"
	"request-monitor/src/logger"
	"request-monitor/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	sqlStore
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) *SQLiteDB {
	return &SQLiteDB{sqlStore{Config: cfg, Logger: log}}
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite failed", err)
	}

	// Every connection to an in-memory database is a separate database
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	err = helpers.RetryWithBackoff(ctx, d.Logger, "sqlite ping", d.Config.Storage.MaxRetries, 500*time.Millisecond, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(ctx); err != nil {
		return err
	}

	d.Logger.Info("SQLiteDB initialized successfully (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables(ctx context.Context) error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS request_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			service TEXT NOT NULL,
			username TEXT,
			operation TEXT,
			file_name TEXT,
			status TEXT,
			queued_at INTEGER NOT NULL DEFAULT 0,
			dispatched_at INTEGER,
			completed_at INTEGER NOT NULL DEFAULT 0,
			queue_ms REAL NOT NULL DEFAULT 0,
			latency_ms REAL NOT NULL DEFAULT 0,
			bytes INTEGER NOT NULL DEFAULT 0,
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
