package reactor

import "sync/atomic"

// Stats holds atomic counters for one Reactor's lifetime activity.
type Stats struct {
	eventsDispatched atomic.Uint64
	signalsDelivered atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats, safe to read without
// further synchronization.
type StatsSnapshot struct {
	EventsDispatched uint64
	SignalsDelivered uint64
}

// Snapshot returns a copy of the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		EventsDispatched: s.eventsDispatched.Load(),
		SignalsDelivered: s.signalsDelivered.Load(),
	}
}
