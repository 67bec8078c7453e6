package aclkit

import (
	"sync"
	"time"
)

// CheckStats provides decision throughput and latency statistics.
type CheckStats struct {
	TotalChecks     int64         `json:"total_checks"`
	Allowed         int64         `json:"allowed"`
	Denied          int64         `json:"denied"`
	Errors          int64         `json:"errors"`
	AverageDuration time.Duration `json:"average_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	MinDuration     time.Duration `json:"min_duration"`
	LastReset       time.Time     `json:"last_reset"`
}

// checkMonitor holds the internal decision monitoring state
type checkMonitor struct {
	mu            sync.RWMutex
	totalCount    int64
	allowedCount  int64
	deniedCount   int64
	errorCount    int64
	totalDuration time.Duration
	maxDuration   time.Duration
	minDuration   time.Duration
	lastReset     time.Time
}

// newCheckMonitor creates a new decision monitor
func newCheckMonitor() *checkMonitor {
	return &checkMonitor{
		minDuration: time.Hour, // Initialize to a large value
		lastReset:   time.Now(),
	}
}

// observe records one completed check with its duration, whatever its
// outcome.
func (cm *checkMonitor) observe(duration time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.totalCount++
	cm.totalDuration += duration

	if duration > cm.maxDuration {
		cm.maxDuration = duration
	}
	if duration < cm.minDuration {
		cm.minDuration = duration
	}
}

// record classifies a resolved outcome.
func (cm *checkMonitor) record(p Permission) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if p == PermissionDeny {
		cm.deniedCount++
	} else {
		cm.allowedCount++
	}
}

// recordError counts a check that failed before producing a decision.
func (cm *checkMonitor) recordError() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.errorCount++
}

// stats returns the current decision statistics
func (cm *checkMonitor) stats() CheckStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	var avgDuration time.Duration
	if cm.totalCount > 0 {
		avgDuration = cm.totalDuration / time.Duration(cm.totalCount)
	}

	return CheckStats{
		TotalChecks:     cm.totalCount,
		Allowed:         cm.allowedCount,
		Denied:          cm.deniedCount,
		Errors:          cm.errorCount,
		AverageDuration: avgDuration,
		MaxDuration:     cm.maxDuration,
		MinDuration:     cm.minDuration,
		LastReset:       cm.lastReset,
	}
}

// reset resets all statistics
func (cm *checkMonitor) reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.totalCount = 0
	cm.allowedCount = 0
	cm.deniedCount = 0
	cm.errorCount = 0
	cm.totalDuration = 0
	cm.maxDuration = 0
	cm.minDuration = time.Hour
	cm.lastReset = time.Now()
}
