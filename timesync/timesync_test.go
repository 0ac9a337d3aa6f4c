package timesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestHeaderMillisAnchorsOnFirstSample(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	clock := NewClockWithNow(fixedClock(now))

	header := clock.HeaderMillis("base_link", 5000)
	assert.Equal(t, "base_link", header.FrameID)
	assert.Equal(t, now, header.Stamp)
}

func TestConsecutiveSamplesTrackBootClock(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	current := now
	clock := NewClockWithNow(func() time.Time { return current })

	first := clock.HeaderMillis("base_link", 5000)

	// 100ms of wall time, 100ms of boot time: mapped stamp advances by
	// exactly the boot delta.
	current = now.Add(100 * time.Millisecond)
	second := clock.HeaderMillis("base_link", 5100)

	assert.Equal(t, 100*time.Millisecond, second.Stamp.Sub(first.Stamp))
}

func TestReanchorsOnDrift(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	current := now
	clock := NewClockWithNow(func() time.Time { return current })

	clock.HeaderMillis("base_link", 5000)

	// Vehicle rebooted: boot time jumps back to near zero. Mapped stamp
	// would be far in the past, so the clock re-anchors to now.
	current = now.Add(10 * time.Second)
	header := clock.HeaderMillis("base_link", 100)
	assert.Equal(t, current, header.Stamp)
}

func TestZeroBootTimeUsesArrivalTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	clock := NewClockWithNow(fixedClock(now))

	header := clock.HeaderMicros("base_link", 0)
	assert.Equal(t, now, header.Stamp)
}

func TestHeaderMicros(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	current := now
	clock := NewClockWithNow(func() time.Time { return current })

	first := clock.HeaderMicros("base_link", 1_000_000)

	current = now.Add(500 * time.Microsecond)
	second := clock.HeaderMicros("base_link", 1_000_500)

	assert.Equal(t, 500*time.Microsecond, second.Stamp.Sub(first.Stamp))
}

func TestResetDropsAnchor(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	current := now
	clock := NewClockWithNow(func() time.Time { return current })

	clock.HeaderMillis("base_link", 5000)
	clock.Reset()

	// After reset the next sample re-anchors at the current wall clock
	// even though the boot stamp moved only slightly.
	current = now.Add(30 * time.Second)
	header := clock.HeaderMillis("base_link", 5010)
	require.Equal(t, current, header.Stamp)
}
