package nclog

import "sync/atomic"

// Stats holds atomic counters for one Logger's lifetime activity.
type Stats struct {
	published   atomic.Uint64
	drained     atomic.Uint64
	writeErrors atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Published   uint64
	Drained     uint64
	WriteErrors uint64
}

// Snapshot returns a copy of the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Published:   s.published.Load(),
		Drained:     s.drained.Load(),
		WriteErrors: s.writeErrors.Load(),
	}
}
