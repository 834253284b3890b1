//go:build linux

package platform

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// HugePagesAvailable reports whether the kernel has any pre-reserved huge
// pages to hand out, by scanning /proc/meminfo line by line with
// bufio.Scanner for its HugePages_Free line.
func HugePagesAvailable() (bool, string, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return false, "", fmt.Errorf("platform: open meminfo: %w", err)
	}
	defer func() { _ = f.Close() }()

	var free int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "HugePages_Free:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		fmt.Sscanf(fields[1], "%d", &free)
	}
	if err := sc.Err(); err != nil {
		return false, "", fmt.Errorf("platform: scan meminfo: %w", err)
	}
	if free <= 0 {
		return false, "no pre-reserved huge pages found in /proc/meminfo", nil
	}
	return true, fmt.Sprintf("%d huge pages free", free), nil
}
