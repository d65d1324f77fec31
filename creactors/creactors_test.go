package creactors

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nancy/reactor"
)

// listenFD creates a bound, listening TCP socket on an ephemeral port and
// returns its fd and address.
func listenFD(t *testing.T) (reactor.FD, string) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	tcpL := l.(*net.TCPListener)
	raw, err := tcpL.SyscallConn()
	require.NoError(t, err)

	var dupFD int
	require.NoError(t, raw.Control(func(fd uintptr) {
		dupFD, err = unix.Dup(int(fd))
	}))
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return reactor.NewFD(dupFD), addr
}

func TestRoundRobinFanOut(t *testing.T) {
	fd, addr := listenFD(t)

	d, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, d.BindListeningSocket(fd))
	require.NoError(t, d.InitWorkers(4, -1))

	var mu sync.Mutex
	perWorker := map[*reactor.Reactor]int{}
	var connWG sync.WaitGroup
	connWG.Add(16)

	d.SetConnectCB(func(r *reactor.Reactor, connFD int) {
		mu.Lock()
		perWorker[r]++
		mu.Unlock()
		_ = unix.SetNonblock(connFD, true)
		connWG.Done()
	})

	go func() { _ = d.Activate() }()
	defer d.Destroy()

	time.Sleep(20 * time.Millisecond)

	var dialWG sync.WaitGroup
	for i := 0; i < 16; i++ {
		dialWG.Add(1)
		go func() {
			defer dialWG.Done()
			c, err := net.Dial("tcp", addr)
			if err == nil {
				defer c.Close()
			}
		}()
	}
	dialWG.Wait()

	waitGroup(t, &connWG, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, perWorker, 4)
	for _, count := range perWorker {
		require.Equal(t, 4, count)
	}
}

func TestOverflowRecordsFailedFD(t *testing.T) {
	d, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, d.InitWorkers(1, -1))

	// Never start the worker goroutine, so nothing ever drains the
	// handoff pair: its send buffer saturates after enough writes and
	// handoff falls back to the overflow list, per spec.md's Overflow
	// scenario.
	attempted := 0
	for attempted < 200000 && len(d.FailedFDs()) == 0 {
		d.handoff(99)
		attempted++
	}

	require.NotEmpty(t, d.FailedFDs())
}

func waitGroup(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for connections")
	}
}
