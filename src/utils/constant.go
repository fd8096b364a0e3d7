package utils

import "time"

// -----------------------------------------------------------------------------

const (
	DefaultRefreshInterval = 60 * time.Second

	// DefaultHistoryCapacity covers roughly a day of renders at one page per minute.
	DefaultHistoryCapacity = 1440
)
