package helpers

import (
	"math"
	"runtime/debug"
)

const minMemoryLimitMB = 256

// RecommendedMemoryLimitMB resolves the configured soft memory limit.
// Zero means 75% of physical RAM, never below minMemoryLimitMB unless the
// machine itself is smaller. Negative disables the limit and returns 0.
func RecommendedMemoryLimitMB(configured int) int {
	if configured < 0 {
		return 0
	}
	if configured > 0 {
		return configured
	}

	totalMB := totalSystemMemoryMB()
	if totalMB == 0 {
		return 512
	}
	limit := totalMB * 3 / 4
	if limit < minMemoryLimitMB {
		return min(totalMB, minMemoryLimitMB)
	}
	return limit
}

// -----------------------------------------------------------------------------

// ApplyMemoryLimit sets the runtime soft limit and returns the value used in MB.
func ApplyMemoryLimit(configured int) int {
	limitMB := RecommendedMemoryLimitMB(configured)
	if limitMB == 0 {
		debug.SetMemoryLimit(math.MaxInt64)
		return 0
	}
	debug.SetMemoryLimit(int64(limitMB) << 20)
	return limitMB
}
