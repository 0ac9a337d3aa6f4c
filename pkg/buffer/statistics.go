package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks cumulative buffer activity. Counters use atomics so
// hot-path updates never contend with readers.
type Statistics struct {
	writes    atomic.Int64
	reads     atomic.Int64
	overflows atomic.Int64
	drops     atomic.Int64

	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Write records a write operation.
func (s *Statistics) Write() { s.writes.Add(1) }

// Read records a read operation.
func (s *Statistics) Read() { s.reads.Add(1) }

// Overflow records a full-buffer write attempt.
func (s *Statistics) Overflow() { s.overflows.Add(1) }

// Drop records an item discarded by the overflow policy.
func (s *Statistics) Drop() { s.drops.Add(1) }

// UpdateSize records the current buffer occupancy.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Writes returns the total number of writes.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the total number of reads.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Overflows returns the total number of overflow events.
func (s *Statistics) Overflows() int64 { return s.overflows.Load() }

// Drops returns the total number of dropped items.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// CurrentSize returns the last recorded buffer occupancy.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the highest occupancy the buffer has reached.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns how long the buffer has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}
