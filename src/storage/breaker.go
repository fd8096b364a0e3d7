package storage

import (
	"context"
	"errors"
	"time"

	"request-monitor/src/helpers"
	"request-monitor/src/interfaces"
	"request-monitor/src/logger"
	"request-monitor/src/models"

	"github.com/sony/gobreaker"
)

// -----------------------------------------------------------------------------

// BreakerDB guards read queries of an IDatabase with a circuit breaker so a
// dead database fails page renders fast instead of stacking timeouts.
type BreakerDB struct {
	interfaces.IDatabase
	cb     *gobreaker.CircuitBreaker
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBreakerDB(inner interfaces.IDatabase, cfg models.MBreakerConfig, log *logger.Logger) *BreakerDB {
	maxFailures := uint32(cfg.MaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}

	b := &BreakerDB{IDatabase: inner, Logger: log}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "database",
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.OpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || helpers.IsValidationError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warning("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return b
}

// -----------------------------------------------------------------------------

// State reports the current breaker state ("closed", "half-open", "open").
func (b *BreakerDB) State() string {
	return b.cb.State().String()
}

// -----------------------------------------------------------------------------

func (b *BreakerDB) QueryResultSet(ctx context.Context, query string, params models.MQueryParams) (models.MResultSet, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.IDatabase.QueryResultSet(ctx, query, params)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return res.(models.MResultSet), nil
}

// -----------------------------------------------------------------------------

func (b *BreakerDB) QueryTable(ctx context.Context, query string, params models.MQueryParams) (models.MTableData, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.IDatabase.QueryTable(ctx, query, params)
	})
	if err != nil {
		return models.MTableData{}, breakerError(err)
	}
	return res.(models.MTableData), nil
}

// -----------------------------------------------------------------------------

func (b *BreakerDB) QueryLogs(ctx context.Context, q models.MLogQuery) (models.MLogPage, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.IDatabase.QueryLogs(ctx, q)
	})
	if err != nil {
		return models.MLogPage{Data: []models.MLogEntry{}}, breakerError(err)
	}
	return res.(models.MLogPage), nil
}

// -----------------------------------------------------------------------------

func (b *BreakerDB) ListServices(ctx context.Context) ([]string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.IDatabase.ListServices(ctx)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return res.([]string), nil
}

// -----------------------------------------------------------------------------

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return helpers.NewDatabaseError("database unavailable", err)
	}
	return err
}
