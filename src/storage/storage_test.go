package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"request-monitor/src/helpers"
	"request-monitor/src/logger"
	"request-monitor/src/models"
)

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name: "test",
		Storage: models.MStorageConfig{
			DBType:              "sqlite",
			DBPath:              ":memory:",
			RetentionDays:       7,
			MaxRetries:          1,
			QueryTimeoutSeconds: 5,
		},
		Breaker: models.MBreakerConfig{MaxFailures: 2, OpenSeconds: 60},
	}
}

func testLogger() *logger.Logger {
	return logger.NewLoggerWithOutput("ERROR", "test", io.Discard)
}

func openTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db := NewSQLiteDB(testConfig(), testLogger())
	require.NoError(t, db.Initialize(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *SQLiteDB) {
	t.Helper()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Unix()
	entries := []models.MLogEntry{
		{Service: "svc-a", Username: "alice", Operation: "read", FileName: "a.dat", Status: "done", QueuedAt: base, DispatchedAt: base + 2, CompletedAt: base + 5, QueueMs: 2000, LatencyMs: 5000, Bytes: 100},
		{Service: "svc-a", Username: "bob", Operation: "write", FileName: "b.dat", Status: "failed", QueuedAt: base + 60, CompletedAt: base + 61, Message: "Disk Full"},
		{Service: "svc-a", Username: "alice", Operation: "read", FileName: "c.dat", Status: "done", QueuedAt: base + 300, DispatchedAt: base + 301, CompletedAt: base + 302, QueueMs: 1000, LatencyMs: 2000},
		{Service: "svc-b", Username: "carol", Operation: "read", FileName: "d.dat", Status: "done", QueuedAt: base, DispatchedAt: base, CompletedAt: base + 1},
	}
	require.NoError(t, db.SaveRequestLogs(context.Background(), entries))
}

func TestBindNamed(t *testing.T) {
	params := models.MQueryParams{Service: "svc", Since: 42}

	t.Run("question marks", func(t *testing.T) {
		q, args, err := BindNamed("SELECT 1 WHERE service = :service AND t >= :since AND s = :service", params, false)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1 WHERE service = ? AND t >= ? AND s = ?", q)
		assert.Equal(t, []interface{}{"svc", int64(42), "svc"}, args)
	})

	t.Run("numbered", func(t *testing.T) {
		q, args, err := BindNamed("SELECT x::text FROM t WHERE service = :service AND t >= :since", params, true)
		require.NoError(t, err)
		assert.Equal(t, "SELECT x::text FROM t WHERE service = $1 AND t >= $2", q)
		assert.Len(t, args, 2)
	})

	t.Run("quoted literal untouched", func(t *testing.T) {
		q, args, err := BindNamed("SELECT strftime('%H:%M', x) WHERE service = :service", params, false)
		require.NoError(t, err)
		assert.Equal(t, "SELECT strftime('%H:%M', x) WHERE service = ?", q)
		assert.Len(t, args, 1)
	})

	t.Run("unknown parameter", func(t *testing.T) {
		_, _, err := BindNamed("SELECT :nope", params, false)
		assert.True(t, helpers.IsValidationError(err))
	})
}

func TestQueryResultSet(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	query := `
		SELECT strftime('%H:%M', queued_at, 'unixepoch') AS label,
		       MIN(queued_at) AS bucket_ts,
		       COUNT(*) AS incoming,
		       AVG(NULLIF(queue_ms, 0)) AS queue
		FROM request_log
		WHERE service = :service AND queued_at >= :since
		GROUP BY label ORDER BY label`

	set, err := db.QueryResultSet(context.Background(), query, models.MQueryParams{Service: "svc-a"})
	require.NoError(t, err)
	require.Len(t, set, 3)

	assert.Equal(t, "10:00", set[0].Label)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), set[0].BucketTime)
	assert.Equal(t, 1.0, set[0].Values["incoming"])
	assert.Equal(t, 2000.0, set[0].Values["queue"])

	// NULL average leaves the value unset
	assert.Equal(t, "10:01", set[1].Label)
	_, ok := set[1].Values["queue"]
	assert.False(t, ok)
	_, ok = set[1].Values[BucketTimeColumn]
	assert.False(t, ok)
}

func TestQueryResultSetNoRows(t *testing.T) {
	db := openTestDB(t)

	set, err := db.QueryResultSet(context.Background(),
		"SELECT service AS label, COUNT(*) AS n FROM request_log WHERE service = :service GROUP BY service",
		models.MQueryParams{Service: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestQueryResultSetKeepsUnlabelledRows(t *testing.T) {
	db := openTestDB(t)

	set, err := db.QueryResultSet(context.Background(),
		"SELECT NULL AS bucket, 5 AS incoming UNION ALL SELECT '' AS bucket, 7 AS incoming",
		models.MQueryParams{})
	require.NoError(t, err)
	require.Len(t, set, 2)
	for _, row := range set {
		assert.Empty(t, row.Label)
	}
	assert.ElementsMatch(t, []float64{5, 7}, []float64{set[0].Values["incoming"], set[1].Values["incoming"]})
}

func TestQueryResultSetBadSQL(t *testing.T) {
	db := openTestDB(t)

	_, err := db.QueryResultSet(context.Background(), "SELECT FROM nowhere", models.MQueryParams{})
	assert.True(t, helpers.IsDatabaseError(err))
}

func TestQueryTable(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	table, err := db.QueryTable(context.Background(),
		"SELECT username, COUNT(*) AS requests FROM request_log WHERE service = :service GROUP BY username ORDER BY username",
		models.MQueryParams{Service: "svc-a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"username", "requests"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "alice", table.Rows[0][0])
	assert.EqualValues(t, 2, table.Rows[0][1])
}

func TestQueryLogs(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	ctx := context.Background()

	t.Run("service filter and totals", func(t *testing.T) {
		page, err := db.QueryLogs(ctx, models.MLogQuery{Service: "svc-a"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.RecordsTotal)
		assert.EqualValues(t, 3, page.RecordsFiltered)
		require.Len(t, page.Data, 3)
		// default order is newest id first
		assert.Equal(t, "c.dat", page.Data[0].FileName)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		page, err := db.QueryLogs(ctx, models.MLogQuery{Service: "svc-a", Search: "disk full"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.RecordsTotal)
		assert.EqualValues(t, 1, page.RecordsFiltered)
		require.Len(t, page.Data, 1)
		assert.Equal(t, "bob", page.Data[0].Username)
		assert.Zero(t, page.Data[0].DispatchedAt)
	})

	t.Run("wildcards in search match literally", func(t *testing.T) {
		for _, term := range []string{"_", "%", "a_dat", `\`} {
			page, err := db.QueryLogs(ctx, models.MLogQuery{Service: "svc-a", Search: term})
			require.NoError(t, err)
			assert.EqualValues(t, 0, page.RecordsFiltered, "search %q", term)
			assert.Empty(t, page.Data)
		}

		page, err := db.QueryLogs(ctx, models.MLogQuery{Service: "svc-a", Search: "a.dat"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.RecordsFiltered)
	})

	t.Run("paging and ordering", func(t *testing.T) {
		page, err := db.QueryLogs(ctx, models.MLogQuery{Start: 1, Length: 2, OrderBy: "file_name", OrderDir: "asc"})
		require.NoError(t, err)
		assert.EqualValues(t, 4, page.RecordsTotal)
		require.Len(t, page.Data, 2)
		assert.Equal(t, "b.dat", page.Data[0].FileName)
		assert.Equal(t, "c.dat", page.Data[1].FileName)
	})

	t.Run("unknown order column falls back to id", func(t *testing.T) {
		page, err := db.QueryLogs(ctx, models.MLogQuery{OrderBy: "id; DROP TABLE request_log", Length: 1})
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, "d.dat", page.Data[0].FileName)
	})
}

func TestListServices(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	services, err := db.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"svc-a", "svc-b"}, services)
}

func TestCleanupOldData(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	ctx := context.Background()

	now := time.Now().Unix()
	require.NoError(t, db.SaveRequestLogs(ctx, []models.MLogEntry{
		{Service: "svc-a", QueuedAt: now, CompletedAt: now},
	}))

	require.NoError(t, db.CleanupOldData(ctx))

	page, err := db.QueryLogs(ctx, models.MLogQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.RecordsTotal)
}

func TestPing(t *testing.T) {
	db := NewSQLiteDB(testConfig(), testLogger())
	assert.True(t, helpers.IsDatabaseError(db.Ping(context.Background())))

	require.NoError(t, db.Initialize(context.Background()))
	defer db.Close()
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpen(t *testing.T) {
	db, err := Open(context.Background(), testConfig(), testLogger())
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "closed", db.State())

	cfg := testConfig()
	cfg.Storage.DBType = "oracle"
	_, err = Open(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

type failingDB struct {
	*SQLiteDB
	calls int
}

func (f *failingDB) QueryResultSet(ctx context.Context, query string, params models.MQueryParams) (models.MResultSet, error) {
	f.calls++
	return nil, helpers.NewDatabaseError("boom", errors.New("connection refused"))
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &failingDB{SQLiteDB: openTestDB(t)}
	db := NewBreakerDB(inner, models.MBreakerConfig{MaxFailures: 2, OpenSeconds: 60}, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := db.QueryResultSet(ctx, "SELECT 1", models.MQueryParams{})
		assert.True(t, helpers.IsDatabaseError(err))
	}
	assert.Equal(t, "open", db.State())

	_, err := db.QueryResultSet(ctx, "SELECT 1", models.MQueryParams{})
	assert.True(t, helpers.IsDatabaseError(err))
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the database")
}

func TestBreakerIgnoresValidationErrors(t *testing.T) {
	db := NewBreakerDB(openTestDB(t), models.MBreakerConfig{MaxFailures: 1, OpenSeconds: 60}, testLogger())

	_, err := db.QueryResultSet(context.Background(), "SELECT :bogus", models.MQueryParams{})
	assert.True(t, helpers.IsValidationError(err))
	assert.Equal(t, "closed", db.State())
}
