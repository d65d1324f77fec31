// Package reactor implements a single-threaded, epoll-based readiness
// event loop: register descriptors with an event mask and trigger mode,
// dispatch to per-fd or shared callbacks, integrate signals through a
// self-pipe, and support a bounded wait with a periodic timeout callback.
package reactor

import (
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nancy"
	"github.com/ehrlich-b/nancy/internal/interfaces"
	"github.com/ehrlich-b/nancy/internal/ncetime"
	"github.com/ehrlich-b/nancy/internal/obslog"
)

// Callback is invoked with the ready descriptor.
type Callback func(fd int)

// SignalCallback is invoked when its registered signal is delivered.
type SignalCallback func(sig syscall.Signal)

type signalEntry struct {
	sig syscall.Signal
	cb  SignalCallback
}

// Config configures a Reactor.
type Config struct {
	// TimeoutMs is the initial epoll_wait bound in milliseconds; -1
	// blocks indefinitely.
	TimeoutMs int
	Logger    interfaces.Logger
	Observer  interfaces.Observer
}

// DefaultConfig returns a Reactor configuration that waits indefinitely
// and logs through obslog's default logger.
func DefaultConfig() Config {
	return Config{TimeoutMs: -1, Logger: obslog.Default()}
}

// Reactor owns one epoll instance and dispatches its readiness events.
type Reactor struct {
	epollFD int

	events     []unix.EpollEvent
	fdCallback map[int]Callback

	signalMu        []signalEntry // sorted by signal number
	selfPipeArmedOn bool

	readableCB   Callback
	writableCB   Callback
	disconnectCB Callback
	timeoutCB    func()

	timeoutMs int32
	stop      atomic.Bool

	logger   interfaces.Logger
	observer interfaces.Observer

	timers *ncetime.Master

	stats Stats
}

// New creates a Reactor backed by a fresh epoll instance.
func New(cfg Config) (*Reactor, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, nancy.WrapError("epoll_create1", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = obslog.Default()
	}

	r := &Reactor{
		epollFD:    fd,
		events:     make([]unix.EpollEvent, nancy.InitialEpollBatch),
		fdCallback: make(map[int]Callback),
		timeoutMs:  int32(cfg.TimeoutMs),
		logger:     logger,
		observer:   cfg.Observer,
	}
	return r, nil
}

// AddFD registers fd with the given event mask and trigger mode. A nil cb
// routes events to the shared readable/writable/disconnect callbacks
// instead of a per-fd one.
func (r *Reactor) AddFD(fd int, events EventMask, mode TriggerMode, cb Callback) error {
	raw := toEpollEvents(events, mode)
	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: raw}); err != nil {
		return nancy.NewFDError("add_fd", fd, nancy.ErrCodeBadRegistration, err.Error())
	}
	if cb != nil {
		r.fdCallback[fd] = cb
	}
	return nil
}

// ModFD updates an existing registration; required between notifications
// delivered in a one-shot trigger mode.
func (r *Reactor) ModFD(fd int, events EventMask, mode TriggerMode) error {
	raw := toEpollEvents(events, mode)
	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: raw}); err != nil {
		return nancy.NewFDError("mod_fd", fd, nancy.ErrCodeBadRegistration, err.Error())
	}
	return nil
}

// RemoveFD deregisters fd and drops any per-fd callback for it.
func (r *Reactor) RemoveFD(fd int) error {
	delete(r.fdCallback, fd)
	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return nancy.NewFDError("remove_fd", fd, nancy.ErrCodeBadRegistration, err.Error())
	}
	return nil
}

// AddSignal ensures the process-wide self-pipe exists and is registered
// level-triggered-readable on this reactor, installs process-level
// delivery for sig, and stores cb under sig. A second call on the same
// reactor returns ErrCodeSignalPipeTwice rather than arming it again.
func (r *Reactor) AddSignal(sig syscall.Signal, cb SignalCallback) error {
	if r.selfPipeArmedOn {
		return nancy.NewError("add_signal", nancy.ErrCodeSignalPipeTwice, "signal self-pipe already armed on this reactor")
	}

	readFD, err := ensureSignalPipe()
	if err != nil {
		return err
	}

	if err := r.AddFD(readFD, Readable, Level, nil); err != nil {
		return err
	}
	r.selfPipeArmedOn = true

	if err := watchSignal(sig); err != nil {
		return err
	}

	r.signalMu = append(r.signalMu, signalEntry{sig: sig, cb: cb})
	sort.Slice(r.signalMu, func(i, j int) bool { return r.signalMu[i].sig < r.signalMu[j].sig })
	return nil
}

func (r *Reactor) signalCallback(sig syscall.Signal) SignalCallback {
	for _, e := range r.signalMu {
		if e.sig == sig {
			return e.cb
		}
	}
	return nil
}

// SetReadableCB replaces the shared readable callback.
func (r *Reactor) SetReadableCB(cb Callback) { r.readableCB = cb }

// SetWritableCB replaces the shared writable callback.
func (r *Reactor) SetWritableCB(cb Callback) { r.writableCB = cb }

// SetDisconnectCB replaces the shared disconnect/error callback.
func (r *Reactor) SetDisconnectCB(cb Callback) { r.disconnectCB = cb }

// SetTimeoutCB replaces the periodic zero-event timeout callback.
func (r *Reactor) SetTimeoutCB(cb func()) { r.timeoutCB = cb }

// GetReadableCB returns the shared readable callback, or nil if unset.
func (r *Reactor) GetReadableCB() Callback { return r.readableCB }

// GetWritableCB returns the shared writable callback, or nil if unset.
func (r *Reactor) GetWritableCB() Callback { return r.writableCB }

// GetDisconnectCB returns the shared disconnect callback, or nil if unset.
func (r *Reactor) GetDisconnectCB() Callback { return r.disconnectCB }

// ResetTimeout changes the epoll_wait bound; -1 waits indefinitely.
func (r *Reactor) ResetTimeout(ms int) {
	atomic.StoreInt32(&r.timeoutMs, int32(ms))
}

// EpollFD returns the underlying epoll descriptor, for composition with
// other polling layers (e.g. a dispatcher's root reactor).
func (r *Reactor) EpollFD() int { return r.epollFD }

// Timers returns this reactor's deadline-ordered timer set, creating it
// on first use. A caller that never schedules a timer never pays for
// the heap. Expired timers fire from CleanTimeout, which Activate calls
// once per loop iteration, so Timer callbacks run on the same goroutine
// as every other callback this reactor dispatches.
func (r *Reactor) Timers() *ncetime.Master {
	if r.timers == nil {
		r.timers = ncetime.NewMaster()
	}
	return r.timers
}

// Activate runs the event loop until Shutdown is called. Blocks the
// calling goroutine.
func (r *Reactor) Activate() error {
	for !r.stop.Load() {
		timeout := int(atomic.LoadInt32(&r.timeoutMs))
		if r.timers != nil {
			if deadline, ok := r.timers.NextDeadline(); ok {
				if until := time.Until(deadline); until <= 0 {
					timeout = 0
				} else if ms := int(until / time.Millisecond); timeout < 0 || ms < timeout {
					timeout = ms
				}
			}
		}
		n, err := unix.EpollWait(r.epollFD, r.events, timeout)
		if r.stop.Load() {
			return nil
		}
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if r.stop.Load() {
				return nil
			}
			return nancy.WrapError("epoll_wait", err)
		}

		if r.timers != nil {
			r.timers.CleanTimeout(time.Now())
		}

		if n == 0 {
			if r.timeoutCB != nil {
				r.timeoutCB()
			}
			continue
		}

		for i := 0; i < n; i++ {
			r.dispatch(int(r.events[i].Fd), r.events[i].Events)
		}

		if n == len(r.events) {
			r.events = make([]unix.EpollEvent, len(r.events)*2)
		}
	}
	return nil
}

// dispatch implements the exact precedence rule: per-fd callback, then
// disconnect-or-error, then self-pipe drain, then readable, then writable.
func (r *Reactor) dispatch(fd int, raw uint32) {
	r.stats.eventsDispatched.Add(1)

	if cb, ok := r.fdCallback[fd]; ok {
		cb(fd)
		if r.observer != nil {
			r.observer.ObserveDispatch(0, 0, true)
		}
		return
	}

	if raw&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 {
		if r.disconnectCB != nil {
			r.disconnectCB(fd)
		} else {
			_ = unix.Close(fd)
		}
		if r.observer != nil {
			r.observer.ObserveDisconnect()
		}
		return
	}

	if r.selfPipeArmedOn && fd == r.selfPipeFD() && raw&unix.EPOLLIN != 0 {
		r.drainSignalPipe()
		return
	}

	switch {
	case raw&unix.EPOLLIN != 0:
		if r.readableCB != nil {
			r.readableCB(fd)
			if r.observer != nil {
				r.observer.ObserveRead(0, 0, true)
			}
		}
	case raw&unix.EPOLLOUT != 0:
		if r.writableCB != nil {
			r.writableCB(fd)
			if r.observer != nil {
				r.observer.ObserveWrite(0, 0, true)
			}
		}
	}
}

func (r *Reactor) selfPipeFD() int {
	return pipeReadFD
}

func (r *Reactor) drainSignalPipe() {
	buf := make([]byte, nancy.SignalPipeReadBytes)
	n, err := unix.Read(r.selfPipeFD(), buf)
	if err != nil || n <= 0 {
		return
	}
	for _, b := range buf[:n] {
		sig := syscall.Signal(b)
		if cb := r.signalCallback(sig); cb != nil {
			r.stats.signalsDelivered.Add(1)
			cb(sig)
		}
	}
}

// Shutdown sets the stop flag and closes the epoll handle. Idempotent: a
// second call is a no-op. Closing the handle does not wake an epoll_wait
// already blocked on it: Activate returns at the loop's next wake (an
// event or the timeout) without dispatching that wake's events.
func (r *Reactor) Shutdown() error {
	if !r.stop.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(r.epollFD)
}

// Stats returns a snapshot of this reactor's counters.
func (r *Reactor) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}
