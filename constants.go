package nancy

import "time"

// Reactor tuning constants.
const (
	// InitialEpollBatch is the starting size of the epoll_wait event batch;
	// it doubles whenever a wait returns a full batch.
	InitialEpollBatch = 64

	// SignalPipeReadBytes is the number of bytes read from the signal
	// self-pipe per wake; each pending signal occupies one byte.
	SignalPipeReadBytes = 24

	// DefaultListenBacklog is the default backlog passed to listen(2) for
	// a bound listening socket.
	DefaultListenBacklog = 30
)

// Concurrent-reactor tuning constants.
const (
	// DefaultWorkerCount is the number of worker reactors spun up when a
	// worker count is not explicitly requested.
	DefaultWorkerCount = 4

	// HandoffBufferSize is the byte size of the descriptor-notification
	// buffer read from a worker's notify channel; sized to hold several
	// little-endian fd entries per wake.
	HandoffBufferSize = 256
)

// Async logger tuning constants.
const (
	// RecordInlineBytes is the size of a log record's inline stack-style
	// buffer before it overflows onto a heap-allocated buffer.
	RecordInlineBytes = 256

	// HeapBufferAlignment is the rounding boundary applied when growing a
	// record's heap overflow buffer.
	HeapBufferAlignment = 512

	// SegmentBytes is the approximate byte capacity of one ring segment;
	// the segment's slot count is derived from this divided by the
	// logical slot size.
	SegmentBytes = 1 << 20

	// DefaultRollSizeMB is the default log file roll threshold in
	// megabytes when a caller does not specify one.
	DefaultRollSizeMB = 1

	// DrainYieldInterval is a poll interval for the log drain goroutine.
	// The drain loop does not use it: between empty polls it yields with
	// runtime.Gosched and never sleeps.
	DrainYieldInterval = time.Millisecond
)
