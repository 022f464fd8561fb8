package combat

import "container/heap"

// TimerHandle identifies a scheduled callback. The zero handle is never
// issued.
type TimerHandle uint64

type timer struct {
	handle   TimerHandle
	deadline float64
	fn       func()
	index    int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline == h[j].deadline {
		return h[i].handle < h[j].handle
	}
	return h[i].deadline < h[j].deadline
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler is a node's simulation clock and one-shot timer service. It is
// stepped by the tick loop; callbacks run inside Advance.
type Scheduler struct {
	now     float64
	next    TimerHandle
	pending timerHeap
	byID    map[TimerHandle]*timer
}

// NewScheduler creates a scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{byID: make(map[TimerHandle]*timer)}
}

// Now returns simulation seconds since the scheduler was created.
func (s *Scheduler) Now() float64 { return s.now }

// After schedules fn to run once delay seconds from now.
func (s *Scheduler) After(delay float64, fn func()) TimerHandle {
	if delay < 0 {
		delay = 0
	}
	s.next++
	t := &timer{handle: s.next, deadline: s.now + delay, fn: fn}
	heap.Push(&s.pending, t)
	s.byID[t.handle] = t
	return t.handle
}

// Cancel removes a pending callback. It reports whether one was removed.
func (s *Scheduler) Cancel(h TimerHandle) bool {
	t, ok := s.byID[h]
	if !ok {
		return false
	}
	delete(s.byID, h)
	heap.Remove(&s.pending, t.index)
	return true
}

// Pending reports whether h is still scheduled.
func (s *Scheduler) Pending(h TimerHandle) bool {
	_, ok := s.byID[h]
	return ok
}

// Len returns the number of scheduled callbacks.
func (s *Scheduler) Len() int { return len(s.pending) }

// Advance moves the clock forward by dt and runs every callback whose
// deadline has passed, in deadline order. Callbacks scheduled while running
// fire in the same Advance if they are already due.
func (s *Scheduler) Advance(dt float64) {
	if dt > 0 {
		s.now += dt
	}
	for len(s.pending) > 0 && s.pending[0].deadline <= s.now {
		t := heap.Pop(&s.pending).(*timer)
		delete(s.byID, t.handle)
		t.fn()
	}
}
