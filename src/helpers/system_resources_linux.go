//go:build linux

package helpers

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// totalSystemMemoryMB reads MemTotal from /proc/meminfo, or 0 when unknown.
func totalSystemMemoryMB() int {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if !strings.HasPrefix(scanner.Text(), "MemTotal:") {
			continue
		}
		var kb int
		if _, err := fmt.Sscanf(scanner.Text(), "MemTotal: %d kB", &kb); err != nil {
			return 0
		}
		return kb / 1024
	}
	return 0
}
