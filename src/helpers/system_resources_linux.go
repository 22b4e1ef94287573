//go:build linux

package helpers

import (
	"fmt"
	"os"
	"strings"
)

// GetTotalSystemMemoryMB reads MemTotal from /proc/meminfo; 0 when unknown.
func GetTotalSystemMemoryMB() int {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}

	for _, line := range strings.Split(string(data), "\n") {
		var kb int
		if _, err := fmt.Sscanf(line, "MemTotal: %d kB", &kb); err == nil {
			return kb / 1024
		}
	}
	return 0
}
