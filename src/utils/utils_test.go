package utils

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"request-monitor/src/logger"
	"request-monitor/src/models"
)

func quietLogger() *logger.Logger {
	return logger.NewLoggerWithOutput("ERROR", "test", io.Discard)
}

func TestRenderHistoryWraps(t *testing.T) {
	rh := NewRenderHistory(3)
	for i := 0; i < 5; i++ {
		rh.Append(models.MRenderMetrics{Page: "p", Buckets: i})
	}

	assert.Equal(t, 3, rh.Size())
	all := rh.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, 2, all[0].Buckets)
	assert.Equal(t, 4, all[2].Buckets)

	latest := rh.GetLatest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, 3, latest[0].Buckets)
	assert.Equal(t, 4, latest[1].Buckets)

	rh.Clear()
	assert.Empty(t, rh.GetAll())
}

func TestRenderHistoryPageStats(t *testing.T) {
	rh := NewRenderHistory(10)
	rh.Append(models.MRenderMetrics{Page: "a", RenderSeconds: 1})
	rh.Append(models.MRenderMetrics{Page: "a", RenderSeconds: 3, Failed: true})
	rh.Append(models.MRenderMetrics{Page: "b", RenderSeconds: 10})

	renders, failures, avg := rh.PageStats("a")
	assert.Equal(t, 2, renders)
	assert.Equal(t, 1, failures)
	assert.InDelta(t, 2.0, avg, 1e-9)

	renders, _, avg = rh.PageStats("missing")
	assert.Zero(t, renders)
	assert.Zero(t, avg)
}

func TestFallbackCalendar(t *testing.T) {
	bc := GetBusinessCalendar("")
	require.True(t, bc.Fallback)

	wednesdayNoon := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	wednesdayNight := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	saturdayNoon := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

	assert.True(t, bc.IsOpen(wednesdayNoon))
	assert.False(t, bc.IsOpen(wednesdayNight))
	assert.False(t, bc.IsOpen(saturdayNoon))
	assert.False(t, bc.IsBusinessDay(saturdayNoon))
}

func TestExchangeCalendarWeekend(t *testing.T) {
	bc := GetBusinessCalendar("XNYS")
	if bc.Fallback {
		t.Skip("xnys calendar unavailable")
	}
	assert.False(t, bc.IsOpen(time.Date(2024, 5, 4, 15, 0, 0, 0, time.UTC)))
}

func TestRefreshSchedulerIntervals(t *testing.T) {
	rs := NewRefreshScheduler(models.MRefreshConfig{IntervalSeconds: 30, OffHoursIntervalSeconds: 300}, quietLogger())
	assert.Nil(t, rs.Calendar)
	assert.Equal(t, 30*time.Second, rs.NextInterval())

	rs = NewRefreshScheduler(models.MRefreshConfig{IntervalSeconds: 30, OffHoursIntervalSeconds: 300, Calendar: "nowhere"}, quietLogger())
	require.NotNil(t, rs.Calendar)
	require.True(t, rs.Calendar.Fallback)

	rs.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	assert.Equal(t, 30*time.Second, rs.NextInterval())

	rs.now = func() time.Time { return time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC) }
	assert.Equal(t, 300*time.Second, rs.NextInterval())
}

func TestRefreshSchedulerDefaults(t *testing.T) {
	rs := NewRefreshScheduler(models.MRefreshConfig{}, quietLogger())
	assert.Equal(t, DefaultRefreshInterval, rs.Interval)
	assert.Equal(t, DefaultRefreshInterval, rs.OffHoursInterval)
}

func TestRefreshSchedulerRun(t *testing.T) {
	rs := NewRefreshScheduler(models.MRefreshConfig{}, quietLogger())
	rs.Interval = 5 * time.Millisecond

	done := make(chan struct{})
	ticks := make(chan struct{}, 10)
	go rs.Run(done, func() { ticks <- struct{}{} })

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("refresh never fired")
	}
	close(done)
}
