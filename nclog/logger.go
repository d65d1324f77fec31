package nclog

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/nancy"
)

// Logger is the process-wide async logger singleton: producers call its
// Infof/Warnf/Critf helpers (or the package-level convenience functions,
// once Initialize has run) to encode and enqueue a Record; a background
// goroutine drains segments in FIFO order and writes formatted lines to
// a size-rolled file.
type Logger struct {
	q  *queue
	fw *fileWriter

	stop     atomic.Bool
	drainWG  sync.WaitGroup
	producer producerRegistry

	stats Stats
}

var (
	instanceMu sync.Mutex
	instance   *Logger
)

// Initialize creates the singleton logger, opening the first rollover
// file under directory with the given filename prefix. A rollSizeMB of
// zero or less uses nancy.DefaultRollSizeMB. Calling it twice without an
// intervening Shutdown returns ErrCodeLoggerDoubleInit.
func Initialize(directory, prefix string, rollSizeMB int) (*Logger, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return nil, nancy.NewError("initialize", nancy.ErrCodeLoggerDoubleInit, "logger already initialized")
	}
	if rollSizeMB <= 0 {
		rollSizeMB = nancy.DefaultRollSizeMB
	}

	fw, err := newFileWriter(directory, prefix, rollSizeMB)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		q:  newQueue(),
		fw: fw,
	}
	l.drainWG.Add(1)
	go l.drain()

	instance = l
	return l, nil
}

// Instance returns the singleton logger, or nil if Initialize has not
// been called (or has been shut down since).
func Instance() *Logger {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance
}

// Shutdown stops accepting new records' drain progress past what is
// already queued, waits for the drain goroutine to exhaust every fully
// published record, and closes the output file. Records claimed but not
// yet published at the moment of the final drain pass are lost — a
// documented boundary, not a bug: the drain never blocks waiting for a
// claim that may never complete.
func (l *Logger) Shutdown() error {
	instanceMu.Lock()
	if instance == l {
		instance = nil
	}
	instanceMu.Unlock()

	l.stop.Store(true)
	l.drainWG.Wait()
	return l.fw.close()
}

// Stats returns a snapshot of this logger's counters.
func (l *Logger) Stats() StatsSnapshot {
	return l.stats.Snapshot()
}

// drain is the single consumer: pop the oldest segment, walk its slots
// from 0, yield (never park) when the next slot isn't published yet,
// retire the segment once its capacity is reached, and move to the
// next. Only observes stop after a pass where nothing was drained,
// ensuring every already-published record is flushed before exit.
func (l *Logger) drain() {
	defer l.drainWG.Done()

	cur := l.q.peekOldest()
	idx := uint32(0)

	for {
		rec, ok := cur.tryPop(idx)
		if !ok {
			if l.stop.Load() {
				return
			}
			runtime.Gosched()
			continue
		}

		if err := l.fw.write(rec); err != nil {
			l.stats.writeErrors.Add(1)
		} else {
			l.stats.drained.Add(1)
		}
		idx++

		if idx >= uint32(segmentCapacity) {
			next := l.q.retireAndAdvance(cur)
			for next == nil {
				if l.stop.Load() {
					return
				}
				runtime.Gosched()
				next = l.q.retireAndAdvance(cur)
			}
			cur = next
			idx = 0
		}
	}
}

// push encodes and enqueues rec, bumping the publish counter.
func (l *Logger) push(rec *Record) {
	l.q.push(rec)
	l.stats.published.Add(1)
}

func (l *Logger) log(level Level, format string, args []any) {
	file, function, line := callerInfo(3)
	rec := newRecord(level, l.producer.idFor(), file, function, line, time.Now().UnixMicro())
	rec.format = format
	for _, a := range args {
		rec.appendArg(a)
	}
	l.push(rec)
}

// Infof, Warnf, and Critf format a message printf-style, capture the
// caller's file/function/line, and enqueue a record for the background
// drain goroutine.
func (l *Logger) Infof(format string, args ...any) { l.log(Info, format, args) }
func (l *Logger) Warnf(format string, args ...any) { l.log(Warn, format, args) }
func (l *Logger) Critf(format string, args ...any) { l.log(Crit, format, args) }

// Infof, Warnf, and Critf are package-level convenience wrappers around
// the singleton Logger returned by Initialize. They are no-ops if the
// logger has not been initialized.
func Infof(format string, args ...any) { logTo(Info, format, args) }
func Warnf(format string, args ...any) { logTo(Warn, format, args) }
func Critf(format string, args ...any) { logTo(Crit, format, args) }

func logTo(level Level, format string, args []any) {
	l := Instance()
	if l == nil {
		return
	}
	file, function, line := callerInfo(3)
	rec := newRecord(level, l.producer.idFor(), file, function, line, time.Now().UnixMicro())
	rec.format = format
	for _, a := range args {
		rec.appendArg(a)
	}
	l.push(rec)
}
