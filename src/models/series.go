package models

import "time"

// Page kinds
const (
	PageKindTimeseries = "timeseries"
	PageKindPie        = "pie"
	PageKindTable      = "table"
)

// Chart axes
const (
	AxisLeft  = "left"
	AxisRight = "right"
)

// MMetricSeries is a named numeric metric drawn as one line of a chart.
type MMetricSeries struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label" json:"label"`
	Unit  string `yaml:"unit" json:"unit"`
	Axis  string `yaml:"axis" json:"axis"` // "left" or "right"
}

// MSourceRow is one bucket row returned by a source query.
// BucketTime is the full timestamp of the bucket when the query provides one.
type MSourceRow struct {
	Label      string
	BucketTime time.Time
	Values     map[string]float64
}

// MResultSet is the materialised output of one source query.
type MResultSet []MSourceRow

// MQueryParams are the named parameters a page query may reference.
type MQueryParams struct {
	Service string
	Since   int64 // unix seconds
}
