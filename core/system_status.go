package core

import (
	"bufio"
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// SystemStatus is the payload of /healthz/status.
type SystemStatus struct {
	Users struct {
		Available  bool `json:"available"`
		Registered int  `json:"registered"`
	} `json:"users"`
	FailedLogins struct {
		// Mirrored is -1 when the Redis mirror is disabled or unreachable.
		Mirrored int64 `json:"mirrored"`
	} `json:"failed_logins"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// StatusCollector gathers best-effort process and store statistics.
type StatusCollector struct {
	users     CredentialStore
	mirror    *RedisFailedLoginLog
	startedAt time.Time
}

// NewStatusCollector accepts a nil mirror when Redis is not configured.
func NewStatusCollector(users CredentialStore, mirror *RedisFailedLoginLog, startedAt time.Time) *StatusCollector {
	return &StatusCollector{users: users, mirror: mirror, startedAt: startedAt}
}

// Collect never fails; unavailable parts are reported inline.
func (s *StatusCollector) Collect(ctx context.Context) SystemStatus {
	var st SystemStatus

	// store errors carry file paths; they go to the log only
	if records, err := s.users.Load(ctx); err != nil {
		log.Printf("status: credential store: %v", err)
	} else {
		st.Users.Available = true
		st.Users.Registered = len(records)
	}

	st.FailedLogins.Mirrored = -1
	if s.mirror != nil {
		if n, err := s.mirror.Count(ctx); err == nil {
			st.FailedLogins.Mirrored = n
		}
	}

	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !s.startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(s.startedAt).Seconds())
	}
	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
