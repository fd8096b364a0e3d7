package models

// LogColumns is the request_log column order shared by the log viewer and
// storage; it doubles as the ORDER BY whitelist.
var LogColumns = []string{
	"id", "service", "username", "operation", "file_name", "status",
	"queued_at", "dispatched_at", "completed_at", "queue_ms", "latency_ms", "bytes", "message",
}

// MLogEntry is one row of the request_log table.
type MLogEntry struct {
	ID           int64   `json:"id"`
	Service      string  `json:"service"`
	Username     string  `json:"username"`
	Operation    string  `json:"operation"` // "read" or "write"
	FileName     string  `json:"file_name"`
	Status       string  `json:"status"`
	QueuedAt     int64   `json:"queued_at"`
	DispatchedAt int64   `json:"dispatched_at"`
	CompletedAt  int64   `json:"completed_at"`
	QueueMs      float64 `json:"queue_ms"`
	LatencyMs    float64 `json:"latency_ms"`
	Bytes        int64   `json:"bytes"`
	Message      string  `json:"message"`
}

// MLogQuery is a paged, filtered log-viewer request.
type MLogQuery struct {
	Service  string
	Search   string
	Start    int
	Length   int
	OrderBy  string
	OrderDir string
}

// MLogPage is the log-viewer response in the DataTables server-side shape.
type MLogPage struct {
	Draw            int         `json:"draw"`
	RecordsTotal    int64       `json:"recordsTotal"`
	RecordsFiltered int64       `json:"recordsFiltered"`
	Data            []MLogEntry `json:"data"`
}
