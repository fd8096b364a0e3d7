package interfaces

import (
	"context"

	"request-monitor/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and creates the request_log schema.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// QueryResultSet runs a bucket query. The first column is the bucket label,
	// an optional bucket_ts column carries the bucket's unix time, every other
	// column is a numeric series value named after the column.
	QueryResultSet(ctx context.Context, query string, params models.MQueryParams) (models.MResultSet, error)

	// -----------------------------------------------------------------------------

	// QueryTable runs a query and returns its columns and rows verbatim.
	QueryTable(ctx context.Context, query string, params models.MQueryParams) (models.MTableData, error)

	// -----------------------------------------------------------------------------

	// QueryLogs returns one page of request_log rows for the log viewer.
	QueryLogs(ctx context.Context, q models.MLogQuery) (models.MLogPage, error)

	// -----------------------------------------------------------------------------

	// ListServices returns the service identifiers that have logged requests.
	ListServices(ctx context.Context) ([]string, error)

	// -----------------------------------------------------------------------------

	// SaveRequestLogs inserts a batch of request_log rows.
	SaveRequestLogs(ctx context.Context, entries []models.MLogEntry) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Ping checks the connection is alive.
	Ping(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
