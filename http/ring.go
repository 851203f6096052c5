package http

import (
	"errors"
	"math/bits"
	"runtime"
	"sync/atomic"
)

var (
	ErrFull  = errors.New("ring buffer is full")
	ErrEmpty = errors.New("ring buffer is empty")
)

// RingBuffer is a bounded FIFO with a power-of-two capacity. Producers and
// consumers coordinate through per-slot sequence numbers.
type RingBuffer[T any] struct {
	buffer []slot[T]
	mask   uint64
	enqPos uint64
	deqPos uint64
}

type slot[T any] struct {
	sequence uint64
	value    T
}

// minCapacity keeps a slot's "ready" sequence (pos+1) distinct from the
// sequence it is handed back with after a full lap (pos+capacity).
const minCapacity = 2

// NewRingBuffer rounds size up to the next power of two, never below 2.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	capacity := max(ceilPow2(size), minCapacity)

	buf := make([]slot[T], capacity)
	for i := range buf {
		buf[i].sequence = uint64(i)
	}
	return &RingBuffer[T]{
		buffer: buf,
		mask:   uint64(capacity - 1),
	}
}

func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func (q *RingBuffer[T]) Cap() int {
	return len(q.buffer)
}

func (q *RingBuffer[T]) Len() int {
	return int(atomic.LoadUint64(&q.enqPos) - atomic.LoadUint64(&q.deqPos))
}

func (q *RingBuffer[T]) Enqueue(val T) error {
	for {
		pos := atomic.LoadUint64(&q.enqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos)

		switch {
		case delta == 0:
			if atomic.CompareAndSwapUint64(&q.enqPos, pos, pos+1) {
				slot.value = val
				atomic.StoreUint64(&slot.sequence, pos+1)
				return nil
			}
		case delta < 0:
			return ErrFull
		default:
			runtime.Gosched()
		}
	}
}

// Dequeue removes the oldest item. The slot is zeroed so the queue does not
// keep a dequeued value alive.
func (q *RingBuffer[T]) Dequeue() (T, error) {
	var zero T
	for {
		pos := atomic.LoadUint64(&q.deqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos+1)

		switch {
		case delta == 0:
			if atomic.CompareAndSwapUint64(&q.deqPos, pos, pos+1) {
				val := slot.value
				slot.value = zero
				atomic.StoreUint64(&slot.sequence, pos+q.mask+1)
				return val, nil
			}
		case delta < 0:
			return zero, ErrEmpty
		default:
			runtime.Gosched()
		}
	}
}
