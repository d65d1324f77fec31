// Package nclog is the async structured logger: callers capture a record
// synchronously, a lock-free MPSC ring of fixed-size segments carries it
// to a background drain goroutine that formats and writes it to a
// size-rolled file.
package nclog

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/ehrlich-b/nancy"
)

// Level is a record's severity.
type Level int

const (
	Info Level = iota
	Warn
	Crit
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Crit:
		return "CRIT"
	default:
		return "UNKNOWN"
	}
}

// Field type tags, one byte each, prefixing every appended value in a
// record's encoded tail. This is the Go stand-in for the original's
// variadic-tuple `support_types`/`tuple_index` dispatch, expressed as a
// plain enum since Go has no tuple reflection to drive the same trick.
const (
	tagStringPtr byte = iota
	tagStringCopy
	tagInt32
	tagChar
	tagUint64
	tagFloat64
	tagUint32
	tagInt64
	tagBool
)

// Record is one captured log line: a fixed header plus a sequence of
// (tag, value) pairs, encoded into a small inline buffer that overflows
// to a heap buffer rounded to a 512-byte boundary. It is the Go
// equivalent of the original's `zipline`.
type Record struct {
	Timestamp  int64 // microseconds since Unix epoch, UTC
	ProducerID uint64
	File       string
	Function   string
	Line       int32
	Level      Level

	// format is the printf-style format string passed to Infof/Warnf/
	// Critf, kept verbatim rather than rendered on the producer's hot
	// path; Render substitutes the decoded tail into it on the drain
	// goroutine. Empty for records built directly through Append*.
	format string

	inline [nancy.RecordInlineBytes]byte
	heap   []byte
	used   int

	// refs holds string values appended by-pointer: a Go string is
	// already just a pointer+length into immutable backing bytes, so
	// these are stored by reference rather than copied into the byte
	// stream, matching the "string captured as raw pointer" case.
	// Valid only for literals/statics whose lifetime exceeds the
	// record's drain; see AppendStringCopy for caller-owned buffers.
	refs []string
}

// newRecord starts a record with its header captured; append methods add
// the variable tail.
func newRecord(level Level, producerID uint64, file, function string, line int, timestampMicros int64) *Record {
	return &Record{
		Timestamp:  timestampMicros,
		ProducerID: producerID,
		File:       file,
		Function:   function,
		Line:       int32(line),
		Level:      level,
	}
}

func (r *Record) buf() []byte {
	if r.heap != nil {
		return r.heap
	}
	return r.inline[:]
}

// ensureCapacity grows the record's buffer to hold n additional bytes,
// overflowing from the inline array to a heap buffer rounded up to
// HeapBufferAlignment bytes. Records are small (a handful of fields), so
// this allocates directly rather than drawing from a shared pool: the
// smallest allocation worth pooling in this codebase is two to three
// orders of magnitude larger than a record's overflow buffer.
func (r *Record) ensureCapacity(n int) {
	buf := r.buf()
	if r.used+n <= len(buf) {
		return
	}

	needed := r.used + n
	rounded := ((needed / nancy.HeapBufferAlignment) + 1) * nancy.HeapBufferAlignment
	newBuf := make([]byte, rounded)
	copy(newBuf, buf[:r.used])
	r.heap = newBuf
}

func (r *Record) appendByte(b byte) {
	r.ensureCapacity(1)
	buf := r.buf()
	buf[r.used] = b
	r.used++
}

func (r *Record) appendBytes(b []byte) {
	r.ensureCapacity(len(b))
	buf := r.buf()
	copy(buf[r.used:], b)
	r.used += len(b)
}

func (r *Record) appendUvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	r.appendBytes(tmp[:n])
}

// AppendString appends a string captured by reference: valid only when
// the caller guarantees the string outlives the record's drain (string
// literals and other statics qualify).
func (r *Record) AppendString(s string) *Record {
	r.appendByte(tagStringPtr)
	r.appendUvarint(uint64(len(r.refs)))
	r.refs = append(r.refs, s)
	return r
}

// AppendStringCopy appends a string by copying its bytes inline, for
// caller-owned or mutable buffers whose lifetime does not outlive this
// call.
func (r *Record) AppendStringCopy(s string) *Record {
	r.appendByte(tagStringCopy)
	r.appendUvarint(uint64(len(s)))
	r.appendBytes([]byte(s))
	return r
}

func (r *Record) AppendInt32(v int32) *Record {
	r.appendByte(tagInt32)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	r.appendBytes(tmp[:])
	return r
}

func (r *Record) AppendChar(v byte) *Record {
	r.appendByte(tagChar)
	r.appendByte(v)
	return r
}

func (r *Record) AppendUint64(v uint64) *Record {
	r.appendByte(tagUint64)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	r.appendBytes(tmp[:])
	return r
}

func (r *Record) AppendFloat64(v float64) *Record {
	r.appendByte(tagFloat64)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	r.appendBytes(tmp[:])
	return r
}

func (r *Record) AppendUint32(v uint32) *Record {
	r.appendByte(tagUint32)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	r.appendBytes(tmp[:])
	return r
}

func (r *Record) AppendInt64(v int64) *Record {
	r.appendByte(tagInt64)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	r.appendBytes(tmp[:])
	return r
}

func (r *Record) AppendBool(v bool) *Record {
	r.appendByte(tagBool)
	if v {
		r.appendByte(1)
	} else {
		r.appendByte(0)
	}
	return r
}

// decodeArgs walks the tag stream and returns each value decoded to its
// native Go type, in append order — the "write_out" half of the
// original's recursive tag dispatch, shared by writeFields and Render
// so the tag layout is parsed in exactly one place.
func (r *Record) decodeArgs() []any {
	buf := r.buf()[:r.used]
	pos := 0
	var args []any

	for pos < len(buf) {
		tag := buf[pos]
		pos++

		switch tag {
		case tagStringPtr:
			idx, n := binary.Uvarint(buf[pos:])
			pos += n
			args = append(args, r.refs[idx])
		case tagStringCopy:
			length, n := binary.Uvarint(buf[pos:])
			pos += n
			args = append(args, string(buf[pos:pos+int(length)]))
			pos += int(length)
		case tagInt32:
			args = append(args, int32(binary.LittleEndian.Uint32(buf[pos:])))
			pos += 4
		case tagChar:
			args = append(args, buf[pos])
			pos++
		case tagUint64:
			args = append(args, binary.LittleEndian.Uint64(buf[pos:]))
			pos += 8
		case tagFloat64:
			args = append(args, math.Float64frombits(binary.LittleEndian.Uint64(buf[pos:])))
			pos += 8
		case tagUint32:
			args = append(args, binary.LittleEndian.Uint32(buf[pos:]))
			pos += 4
		case tagInt64:
			args = append(args, int64(binary.LittleEndian.Uint64(buf[pos:])))
			pos += 8
		case tagBool:
			args = append(args, buf[pos] != 0)
			pos++
		default:
			return args
		}
	}
	return args
}

// writeFields writes each decoded value's canonical string form,
// space-separated, to dst. Used when a record was built directly
// through the Append* API rather than a format string.
func (r *Record) writeFields(dst *strings.Builder) {
	for i, a := range r.decodeArgs() {
		if i > 0 {
			dst.WriteByte(' ')
		}
		switch v := a.(type) {
		case byte:
			dst.WriteByte(v)
		case float64:
			dst.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
		default:
			fmt.Fprint(dst, v)
		}
	}
}

// Render returns the record's fully formatted message. If the record
// carries a printf-style format string (set by Infof/Warnf/Critf), the
// decoded tail is substituted into it now, on the drain goroutine,
// rather than on the producer's hot path; otherwise its fields are
// rendered space-separated in append order.
func (r *Record) Render() string {
	if r.format != "" {
		return fmt.Sprintf(r.format, r.decodeArgs()...)
	}
	var b strings.Builder
	r.writeFields(&b)
	return b.String()
}

// appendArg appends a printf argument using the Append* encoding that
// matches its runtime type, so the only cost left for the drain
// goroutine is substituting it back into the format string — no
// fmt.Sprintf runs on the producer's path.
func (r *Record) appendArg(a any) {
	switch v := a.(type) {
	case string:
		r.AppendStringCopy(v)
		return
	case error:
		r.AppendStringCopy(v.Error())
		return
	}

	switch rv := reflect.ValueOf(a); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		r.AppendInt32(int32(rv.Int()))
	case reflect.Int64:
		r.AppendInt64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		r.AppendUint32(uint32(rv.Uint()))
	case reflect.Uint64:
		r.AppendUint64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		r.AppendFloat64(rv.Float())
	case reflect.Bool:
		r.AppendBool(rv.Bool())
	default:
		r.AppendStringCopy(fmt.Sprint(a))
	}
}
