// Package meminfo reads the kernel memory counters from /proc/meminfo.
package meminfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Info contains the memory counters the watchdog cares about, in KiB
type Info struct {
	MemTotalKiB     int64
	MemAvailableKiB int64
	SwapTotalKiB    int64
	SwapFreeKiB     int64
}

// MemAvailablePercent returns available memory as a percentage of MemTotal
func (i *Info) MemAvailablePercent() float64 {
	return percent(i.MemAvailableKiB, i.MemTotalKiB)
}

// SwapFreePercent returns free swap as a percentage of SwapTotal, 0 without swap
func (i *Info) SwapFreePercent() float64 {
	return percent(i.SwapFreeKiB, i.SwapTotalKiB)
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// Read parses the meminfo file at path
func Read(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open meminfo: %w", err)
	}
	defer f.Close()

	info, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return info, nil
}

// Parse reads "Key:   value kB" lines. MemTotal and MemAvailable are required,
// the swap counters default to zero when absent.
func Parse(r io.Reader) (*Info, error) {
	info := &Info{}
	fields := map[string]*int64{
		"MemTotal":     &info.MemTotalKiB,
		"MemAvailable": &info.MemAvailableKiB,
		"SwapTotal":    &info.SwapTotalKiB,
		"SwapFree":     &info.SwapFreeKiB,
	}
	seen := make(map[string]bool, len(fields))

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		dst, wanted := fields[key]
		if !wanted {
			continue
		}

		value := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "kB"))
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", key, rest, err)
		}
		*dst = n
		seen[key] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meminfo: %w", err)
	}

	for _, key := range []string{"MemTotal", "MemAvailable"} {
		if !seen[key] {
			return nil, fmt.Errorf("missing %s", key)
		}
	}
	if info.MemTotalKiB <= 0 {
		return nil, fmt.Errorf("invalid MemTotal %d", info.MemTotalKiB)
	}

	return info, nil
}
