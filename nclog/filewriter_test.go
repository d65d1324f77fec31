package nclog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileWriterFormatsLine(t *testing.T) {
	dir := t.TempDir()
	fw, err := newFileWriter(dir, "app", 1)
	require.NoError(t, err)
	defer fw.close()

	rec := newRecord(Info, 7, "main.go", "doWork", 42, 1700000000123456)
	rec.AppendStringCopy("hello")
	require.NoError(t, fw.write(rec))
	require.NoError(t, fw.buf.Flush())

	data, err := os.ReadFile(filepath.Join(dir, "app1.txt"))
	require.NoError(t, err)
	line := string(data)
	require.True(t, strings.HasPrefix(line, "["))
	require.Contains(t, line, "[INFO][7][main.go:doWork:42] hello")
	require.True(t, strings.HasSuffix(line, "\n"))
}

func TestFileWriterCriticalFlushesImmediately(t *testing.T) {
	dir := t.TempDir()
	fw, err := newFileWriter(dir, "app", 1)
	require.NoError(t, err)
	defer fw.close()

	rec := newRecord(Crit, 1, "f.go", "g", 1, 0)
	require.NoError(t, fw.write(rec))

	data, err := os.ReadFile(filepath.Join(dir, "app1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(data), "[CRIT]")
}

func TestFileWriterRollsOverOnSize(t *testing.T) {
	dir := t.TempDir()
	fw, err := newFileWriter(dir, "roll", 0)
	fw.rollSize = 200
	require.NoError(t, err)
	defer fw.close()

	big := strings.Repeat("x", 100)
	for i := 0; i < 10; i++ {
		rec := newRecord(Info, 1, "f.go", "g", int32(i), 0)
		rec.AppendStringCopy(big)
		require.NoError(t, fw.write(rec))
	}
	require.NoError(t, fw.buf.Flush())

	require.FileExists(t, filepath.Join(dir, "roll1.txt"))
	require.FileExists(t, filepath.Join(dir, "roll2.txt"))
}
