package nclog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ehrlich-b/nancy"
)

// fileWriter owns the currently open output file and rolls it over by
// size, matching spec.md §4.4's "never interleave with a partial record
// write" rule: roll-check happens only between complete record writes.
type fileWriter struct {
	directory string
	prefix    string
	rollSize  int64

	fileNumber   int
	bytesWritten int64
	file         *os.File
	buf          *bufio.Writer
}

func newFileWriter(directory, prefix string, rollSizeMB int) (*fileWriter, error) {
	fw := &fileWriter{
		directory: directory,
		prefix:    prefix,
		rollSize:  int64(rollSizeMB) * 1024 * 1024,
	}
	if err := fw.openNext(); err != nil {
		return nil, err
	}
	return fw, nil
}

func (fw *fileWriter) openNext() error {
	if fw.buf != nil {
		if err := fw.buf.Flush(); err != nil {
			return nancy.WrapError("file_writer_flush", err)
		}
	}
	if fw.file != nil {
		if err := fw.file.Close(); err != nil {
			return nancy.WrapError("file_writer_close", err)
		}
	}

	fw.fileNumber++
	path := filepath.Join(fw.directory, fmt.Sprintf("%s%d.txt", fw.prefix, fw.fileNumber))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nancy.WrapError("file_writer_open", err)
	}
	fw.file = f
	fw.buf = bufio.NewWriter(f)
	fw.bytesWritten = 0
	return nil
}

// write formats rec as one line and appends it, rolling over to a new
// numbered file first if the previous write pushed bytesWritten past the
// configured roll size. Critical records are flushed to the underlying
// file immediately.
func (fw *fileWriter) write(rec *Record) error {
	if fw.rollSize > 0 && fw.bytesWritten > fw.rollSize {
		if err := fw.openNext(); err != nil {
			return err
		}
	}

	line := formatLine(rec)
	n, err := fw.buf.WriteString(line)
	if err != nil {
		return nancy.WrapError("file_writer_write", err)
	}
	fw.bytesWritten += int64(n)

	if rec.Level == Crit {
		if err := fw.buf.Flush(); err != nil {
			return nancy.WrapError("file_writer_flush", err)
		}
	}
	return nil
}

func (fw *fileWriter) close() error {
	if err := fw.buf.Flush(); err != nil {
		return nancy.WrapError("file_writer_flush", err)
	}
	return fw.file.Close()
}

// formatLine renders rec as
// "[YYYY-MM-DD HH:MM:SS.UUUUUU][LEVEL][TID][file:func:line] <fields>\n"
// in UTC, per spec.md §6.
func formatLine(rec *Record) string {
	ts := time.UnixMicro(rec.Timestamp).UTC()
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(ts.Format("2006-01-02 15:04:05"))
	b.WriteByte('.')
	fmt.Fprintf(&b, "%06d", ts.Nanosecond()/1000)
	b.WriteByte(']')
	fmt.Fprintf(&b, "[%s]", rec.Level)
	fmt.Fprintf(&b, "[%d]", rec.ProducerID)
	fmt.Fprintf(&b, "[%s:%s:%d] ", rec.File, rec.Function, rec.Line)
	b.WriteString(rec.Render())
	b.WriteByte('\n')
	return b.String()
}
