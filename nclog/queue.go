package nclog

import (
	"runtime"
	"sync/atomic"
)

// queue is the lock-free MPSC ring of segments: producers claim and
// publish slots in the current write segment and rotate to a fresh one
// when it fills; a single drain goroutine walks segments in FIFO order,
// retiring each once fully consumed. The segment list itself is guarded
// by a spin-locked critical section (matching the original's
// `atomic_flag`-based spinlock) rather than a sync.Mutex, since the
// critical section is a handful of slice operations, never a blocking
// call.
type queue struct {
	spin     atomic.Bool
	segments []*segment
	curWrite atomic.Pointer[segment]
}

func newQueue() *queue {
	q := &queue{}
	seg := newSegment()
	q.segments = append(q.segments, seg)
	q.curWrite.Store(seg)
	return q
}

func (q *queue) lock() {
	for !q.spin.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (q *queue) unlock() {
	q.spin.Store(false)
}

// push claims a slot in the current write segment and publishes rec into
// it, rotating to a freshly allocated segment when the current one has
// filled. Safe for concurrent use by any number of producers.
func (q *queue) push(rec *Record) {
	for {
		seg := q.curWrite.Load()
		idx, ok := seg.claim()
		if !ok {
			q.rotate(seg)
			continue
		}
		if seg.publish(idx, rec) {
			q.rotate(seg)
		}
		return
	}
}

// rotate installs a fresh segment as the current write target, but only
// if old is still current — concurrent producers that overclaimed or
// filled the same segment collapse into a single rotation.
func (q *queue) rotate(old *segment) {
	q.lock()
	defer q.unlock()
	if q.curWrite.Load() != old {
		return
	}
	next := newSegment()
	q.segments = append(q.segments, next)
	q.curWrite.Store(next)
}

// peekOldest returns the oldest not-yet-retired segment, for the drain
// goroutine to start or resume walking. Returns nil if none exist yet.
func (q *queue) peekOldest() *segment {
	q.lock()
	defer q.unlock()
	if len(q.segments) == 0 {
		return nil
	}
	return q.segments[0]
}

// retireAndAdvance drops old from the front of the segment list (if it
// is still there) and returns the new oldest segment, or nil if none
// exists yet — the drain goroutine spins until a producer rotates one
// in.
func (q *queue) retireAndAdvance(old *segment) *segment {
	q.lock()
	defer q.unlock()
	if len(q.segments) > 0 && q.segments[0] == old {
		q.segments = q.segments[1:]
	}
	if len(q.segments) > 0 {
		return q.segments[0]
	}
	return nil
}
