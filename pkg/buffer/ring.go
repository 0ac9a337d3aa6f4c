package buffer

import (
	"sync"

	"github.com/vectorfield/airstreams/errors"
)

// ring is the circular-array implementation behind NewRing.
type ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	closed   bool

	stats   *Statistics
	metrics *ringMetrics
	opts    *ringOptions[T]
}

func newRing[T any](capacity int, opts *ringOptions[T]) (*ring[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *ringMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newRingMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newRing", "metrics registration")
		}
	}

	return &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// Write adds an item according to the overflow policy.
func (r *ring[T]) Write(item T) error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return errors.WrapInvalid(errors.ErrShuttingDown, "Buffer", "Write", "buffer closed")
	}

	var dropped T
	var haveDropped bool

	if r.size == r.capacity {
		r.stats.Overflow()
		r.stats.Drop()
		if r.metrics != nil {
			r.metrics.recordOverflow()
			r.metrics.recordDrop()
		}

		switch r.opts.overflowPolicy {
		case DropNewest:
			r.mu.Unlock()
			if r.opts.dropCallback != nil {
				r.opts.dropCallback(item)
			}
			return nil
		default: // DropOldest
			dropped = r.items[r.tail]
			haveDropped = true
			r.tail = (r.tail + 1) % r.capacity
			r.size--
		}
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++

	r.stats.Write()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordWrite(r.size, r.capacity)
	}
	r.mu.Unlock()

	// Callback runs outside the lock so it may touch the buffer.
	if haveDropped && r.opts.dropCallback != nil {
		r.opts.dropCallback(dropped)
	}
	return nil
}

// Read removes and returns the oldest item.
func (r *ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.tail]
	r.items[r.tail] = zero // release for GC
	r.tail = (r.tail + 1) % r.capacity
	r.size--

	r.stats.Read()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordRead(r.size, r.capacity)
	}
	return item, true
}

// ReadBatch removes and returns up to max items in FIFO order.
func (r *ring[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil
	}

	n := max
	if n > r.size {
		n = r.size
	}

	result := make([]T, n)
	var zero T
	for i := 0; i < n; i++ {
		result[i] = r.items[r.tail]
		r.items[r.tail] = zero
		r.tail = (r.tail + 1) % r.capacity
		r.size--
		r.stats.Read()
	}

	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.updateSize(r.size, r.capacity)
	}
	return result
}

// Peek returns the oldest item without removing it.
func (r *ring[T]) Peek() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[r.tail], true
}

// Size returns the current item count.
func (r *ring[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the fixed buffer capacity.
func (r *ring[T]) Capacity() int {
	return r.capacity
}

// IsEmpty reports whether the buffer holds no items.
func (r *ring[T]) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size == 0
}

// Clear discards all buffered items, invoking the drop callback for each.
func (r *ring[T]) Clear() {
	r.mu.Lock()

	var toDrop []T
	if r.opts.dropCallback != nil && r.size > 0 {
		toDrop = make([]T, r.size)
		for i := 0; i < r.size; i++ {
			toDrop[i] = r.items[(r.tail+i)%r.capacity]
		}
	}

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.tail = 0
	r.size = 0

	r.stats.UpdateSize(0)
	if r.metrics != nil {
		r.metrics.updateSize(0, r.capacity)
	}
	r.mu.Unlock()

	for _, item := range toDrop {
		r.opts.dropCallback(item)
	}
}

// Stats returns the buffer's statistics tracker.
func (r *ring[T]) Stats() *Statistics {
	return r.stats
}

// Close marks the buffer closed. Items already buffered remain readable.
func (r *ring[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
