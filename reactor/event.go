package reactor

import "golang.org/x/sys/unix"

// EventMask is a bitset over the readiness conditions a descriptor can be
// registered for.
type EventMask uint32

const (
	Readable          EventMask = 1 << iota // ready for a non-blocking read
	Writable                                // ready for a non-blocking write
	DisconnectOrError                       // peer hung up, or the fd errored
)

// TriggerMode selects how the kernel reports readiness for a registration.
type TriggerMode int

const (
	// Level reports readiness on every wait while the condition holds.
	Level TriggerMode = iota
	// Edge reports readiness only on a state transition; the caller must
	// drain fully before the next notification.
	Edge
	// LevelOneshot is level-triggered but disarms after one delivery;
	// the caller must ModFD to re-arm.
	LevelOneshot
	// EdgeOneshot is edge-triggered and disarms after one delivery.
	EdgeOneshot
)

// toEpollEvents translates an EventMask + TriggerMode pair into the raw
// epoll_event.Events bitfield. DisconnectOrError is always implied: a
// registration without it still reports hangups, since EPOLLHUP/EPOLLERR
// are always delivered by the kernel regardless of the requested mask.
func toEpollEvents(events EventMask, mode TriggerMode) uint32 {
	var raw uint32

	if events&Readable != 0 {
		raw |= unix.EPOLLIN
	}
	if events&Writable != 0 {
		raw |= unix.EPOLLOUT
	}
	raw |= unix.EPOLLRDHUP

	switch mode {
	case Edge:
		raw |= unix.EPOLLET
	case LevelOneshot:
		raw |= unix.EPOLLONESHOT
	case EdgeOneshot:
		raw |= unix.EPOLLET | unix.EPOLLONESHOT
	case Level:
		// no extra flags
	}

	return raw
}
