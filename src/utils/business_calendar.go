package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// Fallback business hours when no exchange calendar can be loaded.
const (
	fallbackOpenHour  = 8
	fallbackCloseHour = 18
)

// BusinessCalendar decides whether a moment falls inside business hours,
// using scmhub/calendar sessions when available.
type BusinessCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetBusinessCalendar loads the calendar for an ISO 10383 MIC (e.g. "xnys").
// An empty or unknown MIC yields the Mon-Fri 08:00-18:00 UTC fallback.
func GetBusinessCalendar(mic string) *BusinessCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic != "" {
		if cal := calendar.GetCalendar(mic); cal != nil {
			return &BusinessCalendar{Calendar: cal, Timezone: cal.Loc}
		}
	}
	return &BusinessCalendar{Fallback: true, Timezone: time.UTC}
}

// -----------------------------------------------------------------------------

func (bc *BusinessCalendar) IsBusinessDay(date time.Time) bool {
	if bc.Timezone != nil {
		date = date.In(bc.Timezone)
	}

	if bc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return bc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpen reports whether t is inside a business session.
func (bc *BusinessCalendar) IsOpen(t time.Time) bool {
	if bc.Timezone != nil {
		t = t.In(bc.Timezone)
	}

	if bc.Fallback {
		if !bc.IsBusinessDay(t) {
			return false
		}
		hour := t.Hour()
		return hour >= fallbackOpenHour && hour < fallbackCloseHour
	}

	return bc.Calendar.IsOpen(t)
}
