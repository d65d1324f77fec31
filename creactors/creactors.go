// Package creactors implements the one-reactor-per-thread concurrent
// dispatcher: a root reactor accepts connections on a bound listening
// socket and round-robins each accepted descriptor to one of N worker
// reactors, each running its own goroutine, over a connected socket pair.
package creactors

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nancy"
	"github.com/ehrlich-b/nancy/internal/interfaces"
	"github.com/ehrlich-b/nancy/internal/obslog"
	"github.com/ehrlich-b/nancy/reactor"
)

// ConnectCB is invoked once per handed-off descriptor on its owning
// worker reactor. The default installs the fd as (readable, edge) after
// making it non-blocking.
type ConnectCB func(r *reactor.Reactor, fd int)

// UniformCallback is a shared callback applied to every worker that has
// not set its own override for the corresponding event.
type UniformCallback func(r *reactor.Reactor, fd int)

type workerNode struct {
	reactor    *reactor.Reactor
	pairWrite  int
	pairRead   int
}

// Config configures a Dispatcher.
type Config struct {
	Logger   interfaces.Logger
	Observer interfaces.Observer
}

// Dispatcher accepts on one listening socket and fans connections out to
// worker reactors.
type Dispatcher struct {
	root     *reactor.Reactor
	listener reactor.FD
	bound    bool

	workers     []*workerNode
	cur         int
	initialized bool

	failuresMu sync.Mutex
	failures   []int

	connectCB    ConnectCB
	readableCB   UniformCallback
	writableCB   UniformCallback
	disconnectCB UniformCallback
	timeoutCB    func()

	logger   interfaces.Logger
	observer interfaces.Observer

	stats Stats
}

// New creates a Dispatcher whose root reactor waits indefinitely.
func New(cfg Config) (*Dispatcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = obslog.Default()
	}

	root, err := reactor.New(reactor.Config{TimeoutMs: -1, Logger: logger, Observer: cfg.Observer})
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		root:     root,
		logger:   logger,
		observer: cfg.Observer,
	}, nil
}

// BindListeningSocket takes ownership of a bound, listening server
// socket, sets it non-blocking, and registers it on the root reactor as
// (readable, edge-triggered) with the accept loop.
func (d *Dispatcher) BindListeningSocket(fd reactor.FD) error {
	if err := unix.SetNonblock(fd.Int(), true); err != nil {
		return nancy.WrapError("bind_listening_socket", err)
	}
	d.listener = fd
	d.bound = true
	return d.root.AddFD(fd.Int(), reactor.Readable, reactor.Edge, d.acceptLoop)
}

// InitWorkers creates n worker contexts, each with its own reactor and a
// connected socket pair for fd hand-off.
func (d *Dispatcher) InitWorkers(n int, timeoutMs int) error {
	for i := 0; i < n; i++ {
		r, err := reactor.New(reactor.Config{TimeoutMs: timeoutMs, Logger: d.logger, Observer: d.observer})
		if err != nil {
			return err
		}
		pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if err != nil {
			return nancy.WrapError("init_workers", err)
		}
		if err := unix.SetNonblock(pair[0], true); err != nil {
			return nancy.WrapError("init_workers", err)
		}
		d.workers = append(d.workers, &workerNode{reactor: r, pairWrite: pair[0], pairRead: pair[1]})
	}
	d.initialized = true
	return nil
}

// SetConnectCB sets the uniform connect callback applied to newly handed
// off descriptors on their owning worker.
func (d *Dispatcher) SetConnectCB(cb ConnectCB) { d.connectCB = cb }

// SetReadableCB sets the uniform readable callback bridged into workers
// that have not set their own.
func (d *Dispatcher) SetReadableCB(cb UniformCallback) { d.readableCB = cb }

// SetWritableCB sets the uniform writable callback.
func (d *Dispatcher) SetWritableCB(cb UniformCallback) { d.writableCB = cb }

// SetDisconnectCB sets the uniform disconnect callback.
func (d *Dispatcher) SetDisconnectCB(cb UniformCallback) { d.disconnectCB = cb }

// SetTimeoutCB sets the timeout callback applied to every worker reactor.
func (d *Dispatcher) SetTimeoutCB(cb func()) { d.timeoutCB = cb }

// FailedFDs returns the descriptors that could not be handed off to any
// worker on a full round-robin lap, for read-only diagnostic inspection.
// This repo does not automatically re-drain them on the next accept wave
// (see DESIGN.md Open Questions — spec.md leaves the choice open).
func (d *Dispatcher) FailedFDs() []int {
	d.failuresMu.Lock()
	defer d.failuresMu.Unlock()
	out := make([]int, len(d.failures))
	copy(out, d.failures)
	return out
}

// Activate requires a bound listening socket. It spawns one goroutine per
// worker running the worker routine, then enters the root reactor's loop.
func (d *Dispatcher) Activate() error {
	if !d.bound {
		return nancy.NewError("activate", nancy.ErrCodeNotBound, "no listening socket bound")
	}
	if !d.initialized {
		if err := d.InitWorkers(nancy.DefaultWorkerCount, -1); err != nil {
			return err
		}
	}

	for _, node := range d.workers {
		go d.runWorker(node)
	}

	return d.root.Activate()
}

// Destroy asks the root and every worker reactor to shut down.
func (d *Dispatcher) Destroy() error {
	err := d.root.Shutdown()
	for _, node := range d.workers {
		if werr := node.reactor.Shutdown(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// Stats returns a snapshot of this dispatcher's counters.
func (d *Dispatcher) Stats() StatsSnapshot {
	return d.stats.Snapshot()
}

// acceptLoop drains accept() until EAGAIN, handing off each accepted
// descriptor to the next eligible worker.
func (d *Dispatcher) acceptLoop(listenFD int) {
	for {
		connFD, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				d.logger.Debugf("creactors: accept4 error: %v", err)
				if d.observer != nil {
					d.observer.ObserveAccept(false)
				}
			}
			return
		}
		d.stats.accepted.Add(1)
		if d.observer != nil {
			d.observer.ObserveAccept(true)
		}
		d.handoff(connFD)
	}
}

// handoff writes the accepted fd's 16-bit identifier to the current
// worker's pair. On a short/blocked write it advances cur modulo N and
// retries; after one full round-robin lap with no success the fd is
// appended to the overflow list.
func (d *Dispatcher) handoff(fd int) {
	n := len(d.workers)
	if n == 0 {
		d.failuresMu.Lock()
		d.failures = append(d.failures, fd)
		d.failuresMu.Unlock()
		return
	}

	start := d.cur
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if d.tryWrite(idx, fd) {
			d.cur = (idx + 1) % n
			return
		}
	}

	d.failuresMu.Lock()
	d.failures = append(d.failures, fd)
	d.failuresMu.Unlock()
	d.stats.overflowed.Add(1)
	d.cur = (start + 1) % n
}

func (d *Dispatcher) tryWrite(workerIdx, fd int) bool {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(fd))
	n, err := unix.Write(d.workers[workerIdx].pairWrite, buf[:])
	return err == nil && n == 2
}

// runWorker is the per-worker goroutine: make the pair's read end
// non-blocking, register it (edge, readable) decoding hand-off fds, and
// bridge any uniform callback the worker reactor has not overridden
// before activating it.
func (d *Dispatcher) runWorker(node *workerNode) {
	if err := unix.SetNonblock(node.pairRead, true); err != nil {
		d.logger.Debugf("creactors: worker nonblock failed: %v", err)
		return
	}

	connectCB := d.connectCB
	if connectCB == nil {
		connectCB = defaultConnectCB
	}

	_ = node.reactor.AddFD(node.pairRead, reactor.Readable, reactor.Edge, func(pairFD int) {
		d.drainHandoffs(node, pairFD, connectCB)
	})

	if d.readableCB != nil && node.reactor.GetReadableCB() == nil {
		uniform := d.readableCB
		node.reactor.SetReadableCB(func(fd int) { uniform(node.reactor, fd) })
	}
	if d.writableCB != nil && node.reactor.GetWritableCB() == nil {
		uniform := d.writableCB
		node.reactor.SetWritableCB(func(fd int) { uniform(node.reactor, fd) })
	}
	if d.disconnectCB != nil && node.reactor.GetDisconnectCB() == nil {
		uniform := d.disconnectCB
		node.reactor.SetDisconnectCB(func(fd int) { uniform(node.reactor, fd) })
	}
	if d.timeoutCB != nil {
		node.reactor.SetTimeoutCB(d.timeoutCB)
	}

	_ = node.reactor.Activate()
}

func (d *Dispatcher) drainHandoffs(node *workerNode, pairFD int, connectCB ConnectCB) {
	buf := make([]byte, nancy.HandoffBufferSize)
	for {
		n, err := unix.Read(pairFD, buf)
		if err != nil || n <= 0 {
			return
		}
		n -= n % 2
		for off := 0; off < n; off += 2 {
			fd := int(binary.LittleEndian.Uint16(buf[off : off+2]))
			connectCB(node.reactor, fd)
		}
	}
}

func defaultConnectCB(r *reactor.Reactor, fd int) {
	_ = unix.SetNonblock(fd, true)
	_ = r.AddFD(fd, reactor.Readable, reactor.Edge, nil)
}
