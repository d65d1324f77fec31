package nclog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/nancy"
)

func TestInitializeDoubleInitFails(t *testing.T) {
	dir := t.TempDir()
	l, err := Initialize(dir, "app", 1)
	require.NoError(t, err)
	defer l.Shutdown()

	_, err = Initialize(dir, "app", 1)
	require.Error(t, err)
	require.True(t, nancy.IsCode(err, nancy.ErrCodeLoggerDoubleInit))
}

func TestInitializeAfterShutdownSucceeds(t *testing.T) {
	dir := t.TempDir()
	l, err := Initialize(dir, "app", 1)
	require.NoError(t, err)
	require.NoError(t, l.Shutdown())

	l2, err := Initialize(dir, "app", 1)
	require.NoError(t, err)
	defer l2.Shutdown()
	require.Equal(t, l2, Instance())
}

func TestLoggerDrainsAndWritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := Initialize(dir, "app", 1)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		l.Infof("hello %d", i)
	}

	require.Eventually(t, func() bool {
		return l.Stats().Drained >= 20
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, l.Shutdown())

	data, err := os.ReadFile(filepath.Join(dir, "app1.txt"))
	require.NoError(t, err)
	require.Equal(t, 20, strings.Count(string(data), "\n"))
	require.Contains(t, string(data), "hello 0")
	require.Contains(t, string(data), "hello 19")
}

func TestLoggerInfofEncodesTypedArgsNotSprintf(t *testing.T) {
	dir := t.TempDir()
	l, err := Initialize(dir, "typed", 1)
	require.NoError(t, err)

	l.Infof("req id=%d name=%s ratio=%.2f ok=%t", int32(42), "alice", 0.5, true)

	require.Eventually(t, func() bool {
		return l.Stats().Drained >= 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, l.Shutdown())

	data, err := os.ReadFile(filepath.Join(dir, "typed1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(data), "req id=42 name=alice ratio=0.50 ok=true")
}

func TestPackageLevelHelpersNoopWithoutInit(t *testing.T) {
	require.Nil(t, Instance())
	Infof("should not panic")
}

func TestPackageLevelHelpersRouteToInstance(t *testing.T) {
	dir := t.TempDir()
	l, err := Initialize(dir, "pkg", 1)
	require.NoError(t, err)

	Infof("via package level")

	require.Eventually(t, func() bool {
		return l.Stats().Drained >= 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, l.Shutdown())
}
