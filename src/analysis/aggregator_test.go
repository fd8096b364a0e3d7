package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"request-monitor/src/helpers"
	"request-monitor/src/models"
)

func row(label string, values map[string]float64) models.MSourceRow {
	return models.MSourceRow{Label: label, Values: values}
}

func TestAggregateMergesTwoSources(t *testing.T) {
	agg, err := NewBucketAggregator([]string{"incoming", "dispatched"}, AggregatorOptions{})
	require.NoError(t, err)

	sourceA := models.MResultSet{
		row("10:00", map[string]float64{"incoming": 5}),
		row("10:05", map[string]float64{"incoming": 3}),
	}
	sourceB := models.MResultSet{
		row("10:00", map[string]float64{"dispatched": 2}),
	}

	table, err := agg.Aggregate(sourceA, sourceB)
	require.NoError(t, err)

	assert.Equal(t, []models.MBucket{
		{Label: "10:00", Values: []float64{5, 2}},
		{Label: "10:05", Values: []float64{3, 0}},
	}, table.Buckets)
	assert.Equal(t, []string{"incoming", "dispatched"}, table.Series)
}

func TestAggregateDensityFill(t *testing.T) {
	series := []string{"a", "b", "c"}
	agg, err := NewBucketAggregator(series, AggregatorOptions{})
	require.NoError(t, err)

	table, err := agg.Aggregate(
		models.MResultSet{row("01:00", map[string]float64{"a": 1})},
		models.MResultSet{row("02:00", map[string]float64{"b": 2}), row("03:00", nil)},
		models.MResultSet{row("01:00", map[string]float64{"unknown": 9})},
	)
	require.NoError(t, err)

	require.Len(t, table.Buckets, 3)
	for _, b := range table.Buckets {
		assert.Len(t, b.Values, len(series), "bucket %s", b.Label)
	}
	assert.Equal(t, []float64{1, 0, 0}, table.Buckets[0].Values)
	assert.Equal(t, []float64{0, 2, 0}, table.Buckets[1].Values)
	assert.Equal(t, []float64{0, 0, 0}, table.Buckets[2].Values)
}

func TestAggregateLastWriteWins(t *testing.T) {
	agg, err := NewBucketAggregator([]string{"incoming"}, AggregatorOptions{})
	require.NoError(t, err)

	first := models.MResultSet{row("10:00", map[string]float64{"incoming": 7})}
	second := models.MResultSet{row("10:00", map[string]float64{"incoming": 4})}

	table, err := agg.Aggregate(first, second)
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, table.Buckets[0].Values)

	table, err = agg.Aggregate(second, first)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, table.Buckets[0].Values)
}

func TestAggregateLexicalOrdering(t *testing.T) {
	agg, err := NewBucketAggregator([]string{"x"}, AggregatorOptions{})
	require.NoError(t, err)

	table, err := agg.Aggregate(models.MResultSet{
		row("00:05", map[string]float64{"x": 1}),
		row("23:50", map[string]float64{"x": 2}),
		row("01:00", map[string]float64{"x": 3}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"00:05", "01:00", "23:50"}, table.Labels())
	assert.Equal(t, []float64{1, 3, 2}, table.Column(0))
}

func TestAggregateChronologicalOrderingAcrossMidnight(t *testing.T) {
	base := time.Date(2024, 3, 1, 23, 50, 0, 0, time.UTC)
	stamped := func(label string, offset time.Duration, v float64) models.MSourceRow {
		return models.MSourceRow{Label: label, BucketTime: base.Add(offset), Values: map[string]float64{"x": v}}
	}

	rows := models.MResultSet{
		stamped("00:05", 15*time.Minute, 3),
		stamped("23:50", 0, 1),
		stamped("23:55", 5*time.Minute, 2),
	}

	t.Run("Lexical", func(t *testing.T) {
		agg, err := NewBucketAggregator([]string{"x"}, AggregatorOptions{})
		require.NoError(t, err)
		table, err := agg.Aggregate(rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"00:05", "23:50", "23:55"}, table.Labels())
	})

	t.Run("Chronological", func(t *testing.T) {
		agg, err := NewBucketAggregator([]string{"x"}, AggregatorOptions{SortMode: SortChronological})
		require.NoError(t, err)
		table, err := agg.Aggregate(rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"23:50", "23:55", "00:05"}, table.Labels())
		assert.Equal(t, []float64{1, 2, 3}, table.Column(0))
	})

	t.Run("UnstampedLast", func(t *testing.T) {
		agg, err := NewBucketAggregator([]string{"x"}, AggregatorOptions{SortMode: SortChronological})
		require.NoError(t, err)
		table, err := agg.Aggregate(rows, models.MResultSet{row("00:00", nil)})
		require.NoError(t, err)
		assert.Equal(t, []string{"23:50", "23:55", "00:05", "00:00"}, table.Labels())
	})
}

func TestAggregateNoData(t *testing.T) {
	agg, err := NewBucketAggregator([]string{"incoming"}, AggregatorOptions{})
	require.NoError(t, err)

	t.Run("NoSources", func(t *testing.T) {
		table, err := agg.Aggregate()
		assert.ErrorIs(t, err, ErrNoData)
		assert.Nil(t, table)
	})

	t.Run("EmptySources", func(t *testing.T) {
		table, err := agg.Aggregate(models.MResultSet{}, nil)
		assert.ErrorIs(t, err, ErrNoData)
		assert.Nil(t, table)
	})

	t.Run("AllZeroIsNotNoData", func(t *testing.T) {
		table, err := agg.Aggregate(models.MResultSet{row("10:00", map[string]float64{"incoming": 0})})
		require.NoError(t, err)
		require.Len(t, table.Buckets, 1)
		assert.Equal(t, []float64{0}, table.Buckets[0].Values)
	})
}

func TestAggregateSubsamplingPreservesData(t *testing.T) {
	agg, err := NewBucketAggregator([]string{"x"}, AggregatorOptions{})
	require.NoError(t, err)

	rows := make(models.MResultSet, 0, 25)
	for i := 0; i < 25; i++ {
		label := time.Date(2024, 1, 1, 10, i, 0, 0, time.UTC).Format("15:04")
		rows = append(rows, row(label, map[string]float64{"x": float64(i)}))
	}

	table, err := agg.Aggregate(rows)
	require.NoError(t, err)

	assert.Len(t, table.Buckets, 25)
	assert.Len(t, table.Column(0), 25)
	assert.Equal(t, []int{0, 5, 10, 15, 20}, table.TickIndices)
	assert.Equal(t, []string{"10:00", "10:05", "10:10", "10:15", "10:20"}, table.TickLabels)
}

func TestTickIndices(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		threshold int
		step      int
		expected  []int
	}{
		{"empty", 0, 20, 5, []int{}},
		{"below threshold", 3, 20, 5, []int{0, 1, 2}},
		{"at threshold", 20, 20, 5, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}},
		{"just above threshold", 21, 20, 5, []int{0, 5, 10, 15, 20}},
		{"custom step", 10, 4, 3, []int{0, 3, 6, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TickIndices(tt.count, tt.threshold, tt.step))
		})
	}
}

func TestNewBucketAggregatorValidation(t *testing.T) {
	tests := []struct {
		name   string
		series []string
		opts   AggregatorOptions
	}{
		{"no series", nil, AggregatorOptions{}},
		{"empty name", []string{"a", ""}, AggregatorOptions{}},
		{"duplicate", []string{"a", "a"}, AggregatorOptions{}},
		{"bad sort mode", []string{"a"}, AggregatorOptions{SortMode: "random"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBucketAggregator(tt.series, tt.opts)
			var vErr *helpers.ValidationError
			assert.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
		})
	}
}

func TestAggregateRejectsEmptyLabel(t *testing.T) {
	agg, err := NewBucketAggregator([]string{"x"}, AggregatorOptions{})
	require.NoError(t, err)

	_, err = agg.Aggregate(models.MResultSet{row("", map[string]float64{"x": 1})})
	var vErr *helpers.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestAggregateDoesNotAliasDeclaredSeries(t *testing.T) {
	series := []string{"a", "b"}
	agg, err := NewBucketAggregator(series, AggregatorOptions{})
	require.NoError(t, err)
	series[0] = "mutated"

	table, err := agg.Aggregate(models.MResultSet{row("10:00", map[string]float64{"a": 1})})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Series)
	assert.Equal(t, []float64{1, 0}, table.Buckets[0].Values)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 5.0, s.Avg)
	assert.Equal(t, 2.0, s.StdDev)
	assert.Equal(t, 40.0, s.Total)

	assert.Equal(t, models.MSeriesSummary{}, Summarize(nil))
}
