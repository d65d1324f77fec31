// Package ncetime supplements a min-heap-ordered timer set, grounded on
// original_source's timer.h (timer / timer_master), as a companion a
// reactor.Reactor can poll for expired deadlines alongside its epoll
// events. Go has container/heap in the standard library in place of
// std::multiset, so that is what backs the ordering here.
package ncetime

import (
	"container/heap"
	"time"
)

// Callback runs when a Timer's deadline has passed.
type Callback func()

// Timer is one scheduled deadline plus the callback to run when it
// expires, mirroring timer<ratio_t>. The callback may be bound after
// construction (timer.bind/rebind in the original), by leaving cb nil
// at Schedule time and wiring it later via Master's returned Timer.
type Timer struct {
	Deadline time.Time
	cb       Callback
	index    int // heap.Interface bookkeeping
}

// Check reports whether now is past this timer's deadline, mirroring
// timer::check(now).
func (t *Timer) Check(now time.Time) bool {
	return now.After(t.Deadline)
}

// Bind sets or replaces the timer's callback, mirroring timer::bind.
func (t *Timer) Bind(cb Callback) { t.cb = cb }

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool   { return h[i].Deadline.Before(h[j].Deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
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

// Master is a min-heap-ordered set of pending timers, mirroring
// timer_master: Schedule adds a timer, Release cancels, CleanTimeout pops and
// fires every timer whose deadline has passed.
type Master struct {
	h timerHeap
}

// NewMaster returns an empty timer set.
func NewMaster() *Master {
	m := &Master{}
	heap.Init(&m.h)
	return m
}

// Schedule creates and binds a timer that expires after d, mirroring
// timer(timeout) + attach. The callback may be nil and bound later via
// the returned Timer's Bind method.
func (m *Master) Schedule(d time.Duration, cb Callback) *Timer {
	t := &Timer{Deadline: time.Now().Add(d), cb: cb}
	heap.Push(&m.h, t)
	return t
}

// Release cancels a pending timer, mirroring timer_master::release. A
// no-op if the timer already fired or was already released.
func (m *Master) Release(t *Timer) {
	if t.index < 0 || t.index >= len(m.h) || m.h[t.index] != t {
		return
	}
	heap.Remove(&m.h, t.index)
}

// Size reports the number of pending timers, mirroring
// timer_master::size.
func (m *Master) Size() int { return m.h.Len() }

// NextDeadline reports the earliest pending timer's deadline, for a
// caller (the reactor's event loop) that needs to bound an otherwise
// indefinite wait so CleanTimeout gets a chance to run on time.
func (m *Master) NextDeadline() (time.Time, bool) {
	if m.h.Len() == 0 {
		return time.Time{}, false
	}
	return m.h[0].Deadline, true
}

// CleanTimeout pops and fires every timer whose deadline has passed as
// of now, in deadline order, mirroring timer_master::clean_timeout.
func (m *Master) CleanTimeout(now time.Time) {
	for m.h.Len() > 0 && m.h[0].Check(now) {
		t := heap.Pop(&m.h).(*Timer)
		if t.cb != nil {
			t.cb()
		}
	}
}
