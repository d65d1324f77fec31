package nclog

import (
	"sync/atomic"

	"github.com/ehrlich-b/nancy"
)

// recordSize is the nominal slot size used to derive a segment's slot
// count from its byte capacity. Records are variable-length, but the
// slot array stores pointers, so this only governs how many concurrent
// in-flight claims one segment admits before rotating.
const recordSize = 128

// segmentCapacity is the number of slots per segment, derived from
// spec.md §4.4's ~1 MiB segment byte budget.
var segmentCapacity = nancy.SegmentBytes / recordSize

// segment is a fixed-capacity array of record slots plus per-slot
// "ready" flags and a shared published count — the Go equivalent of the
// original's `const_buffer<zipline>`.
type segment struct {
	slots     []*Record
	written   []atomic.Bool
	published atomic.Uint32
	nextWrite atomic.Uint32
}

func newSegment() *segment {
	return &segment{
		slots:   make([]*Record, segmentCapacity),
		written: make([]atomic.Bool, segmentCapacity),
	}
}

// claim atomically reserves the next write slot. ok is false when the
// segment is already full or over-claimed; the caller then rotates to a
// fresh segment (a no-op if another producer already did) and retries
// against the new current-write segment.
func (s *segment) claim() (idx uint32, ok bool) {
	idx = s.nextWrite.Add(1) - 1
	return idx, idx < uint32(segmentCapacity)
}

// publish stores rec in slot idx and marks it ready. Returns true if this
// call made the segment's published count reach capacity — the caller
// that observes true is responsible for rotating to a fresh segment.
func (s *segment) publish(idx uint32, rec *Record) bool {
	s.slots[idx] = rec
	s.written[idx].Store(true)
	return s.published.Add(1) == uint32(segmentCapacity)
}

// tryPop returns the record at idx if it has been published, for the
// drain goroutine's sequential walk. Only the drain goroutine calls this.
func (s *segment) tryPop(idx uint32) (*Record, bool) {
	if idx >= uint32(segmentCapacity) {
		return nil, false
	}
	if !s.written[idx].Load() {
		return nil, false
	}
	return s.slots[idx], true
}

// exhausted reports whether idx has reached the segment's capacity, i.e.
// the drain has walked past the last slot. It does not check the slots'
// published flags.
func (s *segment) exhausted(idx uint32) bool {
	return idx >= uint32(segmentCapacity)
}
