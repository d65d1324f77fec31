package nclog

import (
	"bytes"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// producerRegistry assigns a small monotonic producer id to each
// goroutine the first time it logs. Go has no supported equivalent of
// std::thread::id, so this parses the goroutine id out of a runtime
// stack dump — an unofficial but commonly used trick — and caches the
// mapping so the parse only happens once per goroutine.
type producerRegistry struct {
	mu     sync.Mutex
	ids    map[uint64]uint64
	nextID atomic.Uint64
}

func (p *producerRegistry) idFor() uint64 {
	gid := currentGoroutineID()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ids == nil {
		p.ids = make(map[uint64]uint64)
	}
	if id, ok := p.ids[gid]; ok {
		return id
	}
	id := p.nextID.Add(1)
	p.ids[gid] = id
	return id
}

// currentGoroutineID extracts the numeric id from the calling
// goroutine's own stack trace header ("goroutine 123 [running]:").
// Falls back to 0 if the runtime's stack dump format ever changes.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	data := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return 0
	}
	data = data[len(prefix):]
	end := bytes.IndexByte(data, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(data[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// callerInfo resolves the file, function name, and line number of the
// frame skip levels above callerInfo itself (1 is its direct caller),
// mirroring the original's
// __FILE__/__func__/__LINE__ macro capture.
func callerInfo(skip int) (file, function string, line int) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", "unknown", 0
	}
	file = filepath.Base(file)

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return file, "unknown", line
	}
	return file, filepath.Base(fn.Name()), line
}
