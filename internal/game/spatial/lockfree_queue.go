package spatial

import (
	"runtime"
	"sync/atomic"
)

// CacheLineSize is the typical CPU cache line size on x86-64 and arm64.
const CacheLineSize = 64

// Padding keeps hot counters on separate cache lines.
type Padding [CacheLineSize]byte

type queueSlot[T any] struct {
	seq  atomic.Uint64
	item T
}

// LockFreeQueue is a bounded multi-producer single-consumer ring buffer.
// Network goroutines push; the tick goroutine drains.
//
// Each slot carries a sequence number, so the consumer never reads a slot
// whose producer has claimed it but not finished writing.
type LockFreeQueue[T any] struct {
	_    Padding
	head atomic.Uint64 // next slot to claim
	_    Padding
	tail atomic.Uint64 // next slot to read
	_    Padding
	mask  uint64
	slots []queueSlot[T]
}

// NewLockFreeQueue creates a queue; capacity is rounded up to a power of 2.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &LockFreeQueue[T]{
		mask:  uint64(size - 1),
		slots: make([]queueSlot[T], size),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush adds item, reporting false when the queue is full. Safe for
// concurrent producers.
func (q *LockFreeQueue[T]) TryPush(item T) bool {
	for {
		pos := q.head.Load()
		slot := &q.slots[pos&q.mask]
		seq := slot.seq.Load()
		switch {
		case seq == pos:
			if q.head.CompareAndSwap(pos, pos+1) {
				slot.item = item
				slot.seq.Store(pos + 1)
				return true
			}
		case seq < pos:
			return false
		}
		runtime.Gosched()
	}
}

// TryPop removes the oldest item. Only the single consumer may call it.
func (q *LockFreeQueue[T]) TryPop() (T, bool) {
	var zero T
	pos := q.tail.Load()
	slot := &q.slots[pos&q.mask]
	if slot.seq.Load() != pos+1 {
		return zero, false
	}
	item := slot.item
	slot.item = zero
	slot.seq.Store(pos + q.mask + 1)
	q.tail.Store(pos + 1)
	return item, true
}

// DrainTo pops into buf until it is full or the queue is empty and returns
// the count.
func (q *LockFreeQueue[T]) DrainTo(buf []T) int {
	n := 0
	for n < len(buf) {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		buf[n] = item
		n++
	}
	return n
}

// Len is a racy estimate of the queued items.
func (q *LockFreeQueue[T]) Len() int {
	head, tail := q.head.Load(), q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue capacity.
func (q *LockFreeQueue[T]) Cap() int { return int(q.mask + 1) }
