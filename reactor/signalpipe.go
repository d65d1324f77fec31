package reactor

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nancy"
)

// The signal self-pipe is process-wide state: a single pair of connected
// datagram descriptors, created at most once, that signal delivery writes
// into so reactors can observe signals through their ordinary I/O loop.
//
// True async-signal-safety as in a C self-pipe (a raw write(2) from inside
// the handler, touching only errno) is not reachable from Go: signals are
// delivered to user code only after the runtime forwards them through
// os/signal, already off the interrupted stack. The dispatcher goroutine
// below is the practical equivalent — it is not async-signal-safe, but it
// is the only delivery path Go's runtime offers.
var (
	pipeOnce         sync.Once
	pipeReadFD       int
	pipeWriteFD      int
	pipeInitErr      error
	registeredSigsMu sync.Mutex
	registeredSigs   = map[syscall.Signal]bool{}
)

func ensureSignalPipe() (int, error) {
	pipeOnce.Do(func() {
		fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
		if err != nil {
			pipeInitErr = nancy.WrapError("signal_pipe_create", err)
			return
		}
		if err := unix.SetNonblock(fds[0], true); err != nil {
			pipeInitErr = nancy.WrapError("signal_pipe_nonblock", err)
			return
		}
		if err := unix.SetNonblock(fds[1], true); err != nil {
			pipeInitErr = nancy.WrapError("signal_pipe_nonblock", err)
			return
		}
		pipeReadFD = fds[0]
		pipeWriteFD = fds[1]
	})
	return pipeReadFD, pipeInitErr
}

// watchSignal installs a process-wide dispatcher for sig, if one is not
// already running. Each delivery writes the truncated signal number as a
// single byte to the self-pipe's write end.
func watchSignal(sig syscall.Signal) error {
	registeredSigsMu.Lock()
	defer registeredSigsMu.Unlock()

	if registeredSigs[sig] {
		return nil
	}

	if _, err := ensureSignalPipe(); err != nil {
		return err
	}
	writeFD := pipeWriteFD

	ch := make(chan os.Signal, 16)
	signal.Notify(ch, sig)
	go func() {
		for range ch {
			_, _ = unix.Write(writeFD, []byte{byte(sig & 0xff)})
		}
	}()

	registeredSigs[sig] = true
	return nil
}
