package creactors

import "sync/atomic"

// Stats holds atomic counters for one Dispatcher's lifetime activity.
type Stats struct {
	accepted   atomic.Uint64
	overflowed atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Accepted   uint64
	Overflowed uint64
}

// Snapshot returns a copy of the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Accepted:   s.accepted.Load(),
		Overflowed: s.overflowed.Load(),
	}
}
