package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"request-monitor/src/helpers"
	"request-monitor/src/logger"
	"request-monitor/src/models"
)

// BucketTimeColumn is the optional column carrying a bucket's unix timestamp.
const BucketTimeColumn = "bucket_ts"

const (
	defaultLogPageLength = 25
	maxLogPageLength     = 500
)

var searchColumns = []string{"username", "operation", "file_name", "status", "message"}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// -----------------------------------------------------------------------------

// sqlStore holds the query logic shared by the SQLite and Postgres backends.
// numbered selects $1-style placeholders instead of '?'.
type sqlStore struct {
	Config   *models.MConfig
	DB       *sql.DB
	Logger   *logger.Logger
	numbered bool
}

// -----------------------------------------------------------------------------

func (s *sqlStore) placeholder(n int) string {
	if s.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// -----------------------------------------------------------------------------

func (s *sqlStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.Config.Storage.QueryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// -----------------------------------------------------------------------------

func (s *sqlStore) QueryResultSet(ctx context.Context, query string, params models.MQueryParams) (models.MResultSet, error) {
	bound, args, err := BindNamed(query, params, s.numbered)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, helpers.NewDatabaseError("bucket query failed", err)
	}
	defer rows.Close()

	set, err := scanResultSet(rows)
	if err != nil {
		return nil, helpers.NewDatabaseError("bucket query scan failed", err)
	}
	return set, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) QueryTable(ctx context.Context, query string, params models.MQueryParams) (models.MTableData, error) {
	bound, args, err := BindNamed(query, params, s.numbered)
	if err != nil {
		return models.MTableData{}, err
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, bound, args...)
	if err != nil {
		return models.MTableData{}, helpers.NewDatabaseError("table query failed", err)
	}
	defer rows.Close()

	table, err := scanTable(rows)
	if err != nil {
		return models.MTableData{}, helpers.NewDatabaseError("table query scan failed", err)
	}
	return table, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) QueryLogs(ctx context.Context, q models.MLogQuery) (models.MLogPage, error) {
	page := models.MLogPage{Data: []models.MLogEntry{}}

	if q.Length <= 0 {
		q.Length = defaultLogPageLength
	}
	if q.Length > maxLogPageLength {
		q.Length = maxLogPageLength
	}
	if q.Start < 0 {
		q.Start = 0
	}

	orderBy := "id"
	for _, c := range models.LogColumns {
		if c == q.OrderBy {
			orderBy = c
			break
		}
	}
	orderDir := "DESC"
	if strings.EqualFold(q.OrderDir, "asc") {
		orderDir = "ASC"
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	// Base filter (service only) for recordsTotal
	var args []interface{}
	where := "WHERE 1=1"
	if q.Service != "" {
		args = append(args, q.Service)
		where += " AND service = " + s.placeholder(len(args))
	}
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_log "+where, args...).Scan(&page.RecordsTotal); err != nil {
		return page, helpers.NewDatabaseError("log count failed", err)
	}

	// Search filter for recordsFiltered
	if q.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Search)) + "%"
		var ors []string
		for _, c := range searchColumns {
			args = append(args, pattern)
			ors = append(ors, fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, c, s.placeholder(len(args))))
		}
		where += " AND (" + strings.Join(ors, " OR ") + ")"
	}
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_log "+where, args...).Scan(&page.RecordsFiltered); err != nil {
		return page, helpers.NewDatabaseError("log filtered count failed", err)
	}

	args = append(args, q.Length, q.Start)
	query := fmt.Sprintf("SELECT %s FROM request_log %s ORDER BY %s %s LIMIT %s OFFSET %s",
		strings.Join(models.LogColumns, ", "), where, orderBy, orderDir,
		s.placeholder(len(args)-1), s.placeholder(len(args)))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return page, helpers.NewDatabaseError("log query failed", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.MLogEntry
		var username, operation, fileName, status, message sql.NullString
		var dispatched sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Service, &username, &operation, &fileName, &status,
			&e.QueuedAt, &dispatched, &e.CompletedAt, &e.QueueMs, &e.LatencyMs, &e.Bytes, &message); err != nil {
			return page, helpers.NewDatabaseError("log scan failed", err)
		}
		e.Username, e.Operation, e.FileName = username.String, operation.String, fileName.String
		e.Status, e.Message = status.String, message.String
		e.DispatchedAt = dispatched.Int64
		page.Data = append(page.Data, e)
	}
	if err := rows.Err(); err != nil {
		return page, helpers.NewDatabaseError("log rows failed", err)
	}

	return page, nil
}

// -----------------------------------------------------------------------------

// ListServices returns the distinct service identifiers present in request_log.
func (s *sqlStore) ListServices(ctx context.Context) ([]string, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, "SELECT DISTINCT service FROM request_log ORDER BY service")
	if err != nil {
		return nil, helpers.NewDatabaseError("service list failed", err)
	}
	defer rows.Close()

	services := []string{}
	for rows.Next() {
		var svc string
		if err := rows.Scan(&svc); err != nil {
			return nil, helpers.NewDatabaseError("service scan failed", err)
		}
		if svc != "" {
			services = append(services, svc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("service rows failed", err)
	}
	return services, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveRequestLogs(ctx context.Context, entries []models.MLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin failed", err)
	}
	defer tx.Rollback()

	cols := models.LogColumns[1:]
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = s.placeholder(i + 1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO request_log (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return helpers.NewDatabaseError("prepare failed", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var dispatched interface{}
		if e.DispatchedAt > 0 {
			dispatched = e.DispatchedAt
		}
		_, err := stmt.ExecContext(ctx, e.Service, e.Username, e.Operation, e.FileName, e.Status,
			e.QueuedAt, dispatched, e.CompletedAt, e.QueueMs, e.LatencyMs, e.Bytes, e.Message)
		if err != nil {
			return helpers.NewDatabaseError("insert failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) CleanupOldData(ctx context.Context) error {
	retentionDays := s.Config.Storage.RetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	s.Logger.Info("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	res, err := s.DB.ExecContext(ctx, "DELETE FROM request_log WHERE completed_at < "+s.placeholder(1), cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup request_log failed", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.Logger.Info("Cleanup completed, %d rows removed", n)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Ping(ctx context.Context) error {
	if s.DB == nil {
		return helpers.NewDatabaseError("database not initialized", nil)
	}
	if err := s.DB.PingContext(ctx); err != nil {
		return helpers.NewDatabaseError("ping failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Parameter binding
// -----------------------------------------------------------------------------

// BindNamed rewrites :service and :since into driver placeholders and returns
// the matching arguments in order. Quoted literals and '::' casts are left alone.
func BindNamed(query string, params models.MQueryParams, numbered bool) (string, []interface{}, error) {
	var b strings.Builder
	var args []interface{}
	inQuote := false

	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inQuote = !inQuote
			b.WriteByte(ch)
			continue
		}
		if inQuote || ch != ':' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(query) && query[i+1] == ':' {
			b.WriteString("::")
			i++
			continue
		}

		j := i + 1
		for j < len(query) && isIdentChar(query[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte(ch)
			continue
		}

		name := query[i+1 : j]
		switch name {
		case "service":
			args = append(args, params.Service)
		case "since":
			args = append(args, params.Since)
		default:
			return "", nil, helpers.NewValidationError(fmt.Sprintf("unknown query parameter :%s", name))
		}

		if numbered {
			fmt.Fprintf(&b, "$%d", len(args))
		} else {
			b.WriteByte('?')
		}
		i = j - 1
	}

	return b.String(), args, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// -----------------------------------------------------------------------------
// Row scanning
// -----------------------------------------------------------------------------

func scanResultSet(rows *sql.Rows) (models.MResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("bucket query returned no columns")
	}

	set := models.MResultSet{}
	for rows.Next() {
		raw, err := scanRaw(rows, len(cols))
		if err != nil {
			return nil, err
		}

		// NULL and empty labels pass through so the aggregator rejects them
		row := models.MSourceRow{Label: toLabel(raw[0]), Values: make(map[string]float64, len(cols)-1)}
		for i := 1; i < len(cols); i++ {
			if strings.EqualFold(cols[i], BucketTimeColumn) {
				row.BucketTime = toTime(raw[i])
				continue
			}
			// NULL leaves the pair unset so the aggregator zero-fills it
			if f, ok := toFloat(raw[i]); ok {
				row.Values[cols[i]] = f
			}
		}
		set = append(set, row)
	}

	return set, rows.Err()
}

// -----------------------------------------------------------------------------

func scanTable(rows *sql.Rows) (models.MTableData, error) {
	cols, err := rows.Columns()
	if err != nil {
		return models.MTableData{}, err
	}

	table := models.MTableData{Columns: cols, Rows: [][]interface{}{}}
	for rows.Next() {
		raw, err := scanRaw(rows, len(cols))
		if err != nil {
			return models.MTableData{}, err
		}
		for i, v := range raw {
			if b, ok := v.([]byte); ok {
				raw[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, raw)
	}

	return table, rows.Err()
}

// -----------------------------------------------------------------------------

func scanRaw(rows *sql.Rows, n int) ([]interface{}, error) {
	raw := make([]interface{}, n)
	ptrs := make([]interface{}, n)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return raw, nil
}

// -----------------------------------------------------------------------------

func toLabel(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format("15:04")
	default:
		return fmt.Sprint(x)
	}
}

// -----------------------------------------------------------------------------

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// -----------------------------------------------------------------------------

func toTime(v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	if f, ok := toFloat(v); ok {
		return time.Unix(int64(f), 0).UTC()
	}
	return time.Time{}
}
