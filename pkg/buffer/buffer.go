// Package buffer provides a generic, thread-safe ring buffer used to
// decouple datagram ingress from downstream publishing.
//
// The buffer never blocks a writer: when full it either evicts the oldest
// item (DropOldest) or discards the incoming one (DropNewest). Statistics
// are always collected; Prometheus export is optional via WithMetrics().
package buffer

// Buffer is a bounded FIFO parameterized by item type T.
type Buffer[T any] interface {
	// Write adds an item. When the buffer is full, behavior follows the
	// configured overflow policy; Write never blocks.
	Write(item T) error

	// Read removes and returns one item, or the zero value and false
	// when the buffer is empty.
	Read() (T, bool)

	// ReadBatch removes and returns up to max items. The result may be
	// shorter than max; it is nil when the buffer is empty.
	ReadBatch(max int) []T

	// Peek returns the next item without removing it.
	Peek() (T, bool)

	// Size returns the current number of buffered items.
	Size() int

	// Capacity returns the maximum number of items the buffer holds.
	Capacity() int

	// IsEmpty reports whether the buffer contains no items.
	IsEmpty() bool

	// Clear discards all buffered items.
	Clear()

	// Stats returns the buffer's cumulative statistics.
	Stats() *Statistics

	// Close marks the buffer closed. Subsequent writes fail; buffered
	// items remain readable so a drain loop can finish.
	Close() error
}

// OverflowPolicy selects what happens when a write hits a full buffer.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest buffered item to admit the new one.
	DropOldest OverflowPolicy = iota

	// DropNewest discards the incoming item and keeps the buffer as-is.
	DropNewest
)

// String returns the policy name.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is invoked with each item discarded by the overflow policy.
type DropCallback[T any] func(item T)

// NewRing creates a ring buffer with the given capacity. Statistics are
// always collected; all other behavior is configured via options. Returns
// an error only when metrics registration fails.
func NewRing[T any](capacity int, options ...Option[T]) (Buffer[T], error) {
	opts := applyOptions(options...)
	return newRing(capacity, opts)
}
