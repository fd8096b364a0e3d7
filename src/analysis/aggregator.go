package analysis

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"request-monitor/src/helpers"
	"request-monitor/src/models"
)

// Sort modes for bucket labels
const (
	SortLexical       = "lexical"
	SortChronological = "chronological"
)

// Defaults applied when options are left zero.
const (
	DefaultDensityThreshold = 20
	DefaultTickStep         = 5
)

// ErrNoData is returned when no source produced any bucket.
var ErrNoData = errors.New("no data")

// -----------------------------------------------------------------------------

// AggregatorOptions tunes label ordering and tick subsampling.
type AggregatorOptions struct {
	DensityThreshold int
	TickStep         int
	SortMode         string
}

// BucketAggregator merges sparse per-source bucket rows into one dense table.
type BucketAggregator struct {
	series  []string
	options AggregatorOptions
}

// -----------------------------------------------------------------------------

// NewBucketAggregator validates the declared series and options.
func NewBucketAggregator(series []string, opts AggregatorOptions) (*BucketAggregator, error) {
	if len(series) == 0 {
		return nil, validationError("at least one series must be declared", nil)
	}

	seen := make(map[string]struct{}, len(series))
	for _, name := range series {
		if name == "" {
			return nil, validationError("series name cannot be empty", nil)
		}
		if _, dup := seen[name]; dup {
			return nil, validationError(fmt.Sprintf("series %q declared twice", name), nil)
		}
		seen[name] = struct{}{}
	}

	if opts.DensityThreshold <= 0 {
		opts.DensityThreshold = DefaultDensityThreshold
	}
	if opts.TickStep <= 0 {
		opts.TickStep = DefaultTickStep
	}
	switch opts.SortMode {
	case "":
		opts.SortMode = SortLexical
	case SortLexical, SortChronological:
	default:
		return nil, validationError(fmt.Sprintf("unknown sort mode %q", opts.SortMode), nil)
	}

	declared := make([]string, len(series))
	copy(declared, series)

	return &BucketAggregator{series: declared, options: opts}, nil
}

// -----------------------------------------------------------------------------

// Aggregate builds the dense table. Sources are applied in order, so for any
// (bucket, series) pair the value from the last source that supplied it wins.
// Returns ErrNoData when the union of bucket labels is empty.
func (a *BucketAggregator) Aggregate(sources ...models.MResultSet) (*models.MAggregatedTable, error) {
	// 1. Accumulate observations and the earliest timestamp seen per label
	cells := make(map[string]map[string]float64)
	stamps := make(map[string]time.Time)
	var labels []string

	for srcIdx, rows := range sources {
		for rowIdx, row := range rows {
			if row.Label == "" {
				return nil, validationError(fmt.Sprintf("source %d row %d has an empty bucket label", srcIdx, rowIdx), nil)
			}

			cell, ok := cells[row.Label]
			if !ok {
				cell = make(map[string]float64)
				cells[row.Label] = cell
				labels = append(labels, row.Label)
			}
			for name, v := range row.Values {
				cell[name] = v
			}

			if !row.BucketTime.IsZero() {
				if ts, ok := stamps[row.Label]; !ok || row.BucketTime.Before(ts) {
					stamps[row.Label] = row.BucketTime
				}
			}
		}
	}

	if len(labels) == 0 {
		return nil, ErrNoData
	}

	// 2. Order labels independently of map iteration
	a.sortLabels(labels, stamps)

	// 3. Fill a value for every declared series, zero when unseen
	table := &models.MAggregatedTable{
		Series:  append([]string(nil), a.series...),
		Buckets: make([]models.MBucket, len(labels)),
	}
	for i, label := range labels {
		values := make([]float64, len(a.series))
		cell := cells[label]
		for j, name := range a.series {
			values[j] = cell[name]
		}
		table.Buckets[i] = models.MBucket{Label: label, Values: values}
	}

	// 4. Axis ticks
	table.TickIndices = TickIndices(len(labels), a.options.DensityThreshold, a.options.TickStep)
	table.TickLabels = make([]string, len(table.TickIndices))
	for i, idx := range table.TickIndices {
		table.TickLabels[i] = labels[idx]
	}

	return table, nil
}

// -----------------------------------------------------------------------------

func (a *BucketAggregator) sortLabels(labels []string, stamps map[string]time.Time) {
	if a.options.SortMode != SortChronological {
		sort.Strings(labels)
		return
	}

	// Labels without a timestamp sort after stamped ones, lexically among themselves.
	sort.SliceStable(labels, func(i, j int) bool {
		ti, okI := stamps[labels[i]]
		tj, okJ := stamps[labels[j]]
		switch {
		case okI && okJ:
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return labels[i] < labels[j]
		case okI != okJ:
			return okI
		default:
			return labels[i] < labels[j]
		}
	})
}

// -----------------------------------------------------------------------------

// TickIndices returns the bucket positions whose labels are shown on the axis.
// Up to threshold buckets every label is shown; above it every step-th one,
// starting at the first bucket.
func TickIndices(count, threshold, step int) []int {
	if count <= 0 {
		return []int{}
	}
	if step <= 0 {
		step = 1
	}

	if count <= threshold {
		step = 1
	}

	indices := make([]int, 0, (count+step-1)/step)
	for i := 0; i < count; i += step {
		indices = append(indices, i)
	}
	return indices
}

// -----------------------------------------------------------------------------

func validationError(msg string, cause error) error {
	return &helpers.ValidationError{DashboardError: helpers.DashboardError{Message: msg, Cause: cause}}
}
