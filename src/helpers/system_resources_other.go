//go:build !linux

package helpers

// totalSystemMemoryMB is unknown off Linux; callers fall back to a fixed limit.
func totalSystemMemoryMB() int {
	return 0
}
