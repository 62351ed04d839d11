package sysinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const meminfoPath = "/proc/meminfo"

// Metrics represents process and host metrics reported by the health check
type Metrics struct {
	CPUCount      int     `json:"cpu_count"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	MemoryTotalGB float64 `json:"memory_total_gb,omitempty"`
	MemoryUsedGB  float64 `json:"memory_used_gb,omitempty"`
	MemoryFreeGB  float64 `json:"memory_free_gb,omitempty"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	MemInfoError  string  `json:"meminfo_error,omitempty"`
}

// GetMetrics returns metrics for a process started at startedAt. Host memory is
// read from /proc/meminfo when present; on other systems it is left out.
func GetMetrics(startedAt time.Time) Metrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	metrics := Metrics{
		CPUCount:      runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / (1024 * 1024),
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}

	file, err := os.Open(meminfoPath)
	if err != nil {
		if !os.IsNotExist(err) {
			metrics.MemInfoError = err.Error()
		}
		return metrics
	}
	defer file.Close()

	if err := readMemoryInfo(file, &metrics); err != nil {
		metrics.MemInfoError = err.Error()
	}
	return metrics
}

// readMemoryInfo parses meminfo formatted content
func readMemoryInfo(r io.Reader, metrics *Metrics) error {
	var memTotal, memAvailable float64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			memTotal = value / (1024 * 1024) // KB to GB
		case strings.HasPrefix(line, "MemAvailable:"):
			memAvailable = value / (1024 * 1024) // KB to GB
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading meminfo: %w", err)
	}

	metrics.MemoryTotalGB = memTotal
	metrics.MemoryFreeGB = memAvailable
	metrics.MemoryUsedGB = memTotal - memAvailable

	return nil
}
