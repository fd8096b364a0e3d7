package utils

import (
	"time"

	"request-monitor/src/logger"
	"request-monitor/src/models"
)

// RefreshScheduler picks how often subscribed pages are re-rendered.
// Outside business hours traffic is low, so a longer interval is used.
type RefreshScheduler struct {
	Interval         time.Duration
	OffHoursInterval time.Duration
	Calendar         *BusinessCalendar
	Logger           *logger.Logger

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewRefreshScheduler(cfg models.MRefreshConfig, l *logger.Logger) *RefreshScheduler {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	offHours := time.Duration(cfg.OffHoursIntervalSeconds) * time.Second
	if offHours <= 0 {
		offHours = interval
	}

	rs := &RefreshScheduler{
		Interval:         interval,
		OffHoursInterval: offHours,
		Logger:           l,
		now:              time.Now,
	}
	if cfg.Calendar != "" {
		rs.Calendar = GetBusinessCalendar(cfg.Calendar)
		if rs.Calendar.Fallback {
			l.Warning("RefreshScheduler: calendar '%s' not found, using Mon-Fri %02d:00-%02d:00 UTC", cfg.Calendar, fallbackOpenHour, fallbackCloseHour)
		}
	}

	l.Info("RefreshScheduler: interval %s, off-hours %s", rs.Interval, rs.OffHoursInterval)
	return rs
}

// -----------------------------------------------------------------------------

// NextInterval returns the delay until the next refresh.
func (rs *RefreshScheduler) NextInterval() time.Duration {
	if rs.Calendar == nil || rs.Calendar.IsOpen(rs.now().UTC()) {
		return rs.Interval
	}
	return rs.OffHoursInterval
}

// -----------------------------------------------------------------------------

// Run calls fn once per interval until done is closed.
func (rs *RefreshScheduler) Run(done <-chan struct{}, fn func()) {
	timer := time.NewTimer(rs.NextInterval())
	defer timer.Stop()

	for {
		select {
		case <-done:
			return
		case <-timer.C:
			fn()
			timer.Reset(rs.NextInterval())
		}
	}
}
