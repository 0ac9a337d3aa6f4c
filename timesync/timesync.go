// Package timesync converts device boot-relative timestamps into canonical
// wall-clock headers.
//
// Vehicle telemetry stamps samples with time since autopilot boot. The
// Clock anchors that boot epoch against the local wall clock on the first
// sample and re-anchors whenever the mapping drifts beyond a threshold
// (vehicle reboot, link gap, or clock step).
package timesync

import (
	"sync"
	"time"

	"github.com/vectorfield/airstreams/telemetry"
)

// Synchronizer converts a raw device time plus frame identifier into a
// canonical timestamped header.
type Synchronizer interface {
	// HeaderMillis builds a header from a boot-relative millisecond stamp.
	HeaderMillis(frameID string, bootMS uint32) telemetry.Header

	// HeaderMicros builds a header from a boot-relative microsecond stamp.
	HeaderMicros(frameID string, bootUS uint64) telemetry.Header

	// Reset drops any accumulated anchor state, forcing the next sample
	// to re-estimate the boot epoch.
	Reset()
}

// DefaultMaxDrift is the re-anchor threshold: when the mapped stamp
// deviates from the local clock by more than this, the boot epoch is
// re-estimated.
const DefaultMaxDrift = time.Second

// Clock is the default Synchronizer. Safe for concurrent use.
type Clock struct {
	mu       sync.Mutex
	now      func() time.Time
	epoch    time.Time
	anchored bool
	maxDrift time.Duration
}

// NewClock creates a boot-epoch synchronizer with the default drift
// threshold.
func NewClock() *Clock {
	return &Clock{
		now:      time.Now,
		maxDrift: DefaultMaxDrift,
	}
}

// NewClockWithNow creates a Clock with an injected time source (for tests).
func NewClockWithNow(now func() time.Time) *Clock {
	return &Clock{
		now:      now,
		maxDrift: DefaultMaxDrift,
	}
}

// HeaderMillis builds a header from a boot-relative millisecond stamp.
func (c *Clock) HeaderMillis(frameID string, bootMS uint32) telemetry.Header {
	return telemetry.Header{
		FrameID: frameID,
		Stamp:   c.stamp(time.Duration(bootMS) * time.Millisecond),
	}
}

// HeaderMicros builds a header from a boot-relative microsecond stamp.
func (c *Clock) HeaderMicros(frameID string, bootUS uint64) telemetry.Header {
	return telemetry.Header{
		FrameID: frameID,
		Stamp:   c.stamp(time.Duration(bootUS) * time.Microsecond),
	}
}

// Reset drops the anchor so the next sample re-estimates the boot epoch.
// Called on link reconnects.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.anchored = false
	c.mu.Unlock()
}

func (c *Clock) stamp(sinceBoot time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// Zero device time means the sender carries no clock; use arrival time.
	if sinceBoot == 0 {
		return now
	}

	if !c.anchored {
		c.anchor(now, sinceBoot)
	}

	mapped := c.epoch.Add(sinceBoot)
	drift := now.Sub(mapped)
	if drift < 0 {
		drift = -drift
	}
	if drift > c.maxDrift {
		c.anchor(now, sinceBoot)
		mapped = c.epoch.Add(sinceBoot)
	}

	return mapped
}

// anchor estimates the boot epoch from one sample. Caller holds the lock.
func (c *Clock) anchor(now time.Time, sinceBoot time.Duration) {
	c.epoch = now.Add(-sinceBoot)
	c.anchored = true
}
