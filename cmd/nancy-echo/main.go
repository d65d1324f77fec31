// Command nancy-echo is a one-reactor-per-thread echo server: it binds
// one listening socket, fans connections out across N worker reactors,
// and echoes every byte it reads back to its sender verbatim, logging
// each connection's lifecycle through the async structured logger.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nancy/creactors"
	"github.com/ehrlich-b/nancy/internal/obslog"
	"github.com/ehrlich-b/nancy/nclog"
	"github.com/ehrlich-b/nancy/ncsock"
	"github.com/ehrlich-b/nancy/reactor"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1", "listen address")
		port       = flag.Int("port", 9090, "listen port")
		workers    = flag.Int("workers", 4, "worker reactor count")
		logDir     = flag.String("logdir", ".", "async logger output directory")
		logPrefix  = flag.String("logprefix", "nancy-echo", "async logger file prefix")
		rollSizeMB = flag.Int("rollsize", 1, "log file roll size in megabytes")
		verbose    = flag.Bool("v", false, "verbose diagnostic logging")
	)
	flag.Parse()

	logConfig := obslog.DefaultConfig()
	if *verbose {
		logConfig.Level = obslog.LevelDebug
	}
	logger := obslog.NewLogger(logConfig)
	obslog.SetDefault(logger)

	asyncLog, err := nclog.Initialize(*logDir, *logPrefix, *rollSizeMB)
	if err != nil {
		log.Fatalf("failed to initialize async logger: %v", err)
	}
	defer asyncLog.Shutdown()

	listener, err := ncsock.ListenReq(*addr, *port)
	if err != nil {
		log.Fatalf("failed to bind %s:%d: %v", *addr, *port, err)
	}

	dispatcher, err := creactors.New(creactors.Config{Logger: logger})
	if err != nil {
		log.Fatalf("failed to create dispatcher: %v", err)
	}
	if err := dispatcher.BindListeningSocket(listener); err != nil {
		log.Fatalf("failed to bind listening socket: %v", err)
	}
	if err := dispatcher.InitWorkers(*workers, -1); err != nil {
		log.Fatalf("failed to init workers: %v", err)
	}

	dispatcher.SetConnectCB(echoConnectCB(asyncLog))

	logger.Info("echo server listening", "addr", *addr, "port", *port, "workers", *workers)
	fmt.Printf("nancy-echo listening on %s:%d with %d workers\n", *addr, *port, *workers)

	activateDone := make(chan error, 1)
	go func() { activateDone <- dispatcher.Activate() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case err := <-activateDone:
		if err != nil {
			logger.Error("dispatcher exited", "error", err)
		}
	}

	if err := dispatcher.Destroy(); err != nil {
		logger.Error("error during dispatcher shutdown", "error", err)
	}

	stats := dispatcher.Stats()
	logger.Info("shutdown complete", "accepted", stats.Accepted, "overflowed", stats.Overflowed)
}

// echoConnectCB registers each newly handed-off connection on its
// worker reactor, reading whatever is available and writing it straight
// back. Any read/write error tears the connection down.
func echoConnectCB(asyncLog *nclog.Logger) creactors.ConnectCB {
	return func(r *reactor.Reactor, fd int) {
		_ = unix.SetNonblock(fd, true)
		asyncLog.Infof("connection accepted fd=%d", fd)

		_ = r.AddFD(fd, reactor.Readable, reactor.Edge, func(fd int) {
			buf := make([]byte, 4096)
			for {
				n, err := unix.Read(fd, buf)
				if n > 0 {
					if werr := writeAll(fd, buf[:n]); werr != nil {
						asyncLog.Warnf("write failed fd=%d: %v", fd, werr)
						closeConn(r, fd, asyncLog)
						return
					}
				}
				if err != nil {
					if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
						return
					}
					closeConn(r, fd, asyncLog)
					return
				}
				if n == 0 {
					closeConn(r, fd, asyncLog)
					return
				}
			}
		})
	}
}

func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}

func closeConn(r *reactor.Reactor, fd int, asyncLog *nclog.Logger) {
	_ = r.RemoveFD(fd)
	_ = unix.Close(fd)
	asyncLog.Infof("connection closed fd=%d", fd)
}
