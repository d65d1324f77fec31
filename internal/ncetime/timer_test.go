package ncetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanTimeoutFiresExpiredInOrder(t *testing.T) {
	m := NewMaster()
	var fired []int

	base := time.Now()
	m.Schedule(30*time.Millisecond, func() { fired = append(fired, 3) })
	m.Schedule(10*time.Millisecond, func() { fired = append(fired, 1) })
	m.Schedule(20*time.Millisecond, func() { fired = append(fired, 2) })

	m.CleanTimeout(base.Add(25 * time.Millisecond))
	require.Equal(t, []int{1, 2}, fired)
	require.Equal(t, 1, m.Size())

	m.CleanTimeout(base.Add(35 * time.Millisecond))
	require.Equal(t, []int{1, 2, 3}, fired)
	require.Equal(t, 0, m.Size())
}

func TestReleaseCancelsPendingTimer(t *testing.T) {
	m := NewMaster()
	fired := false
	timer := m.Schedule(10*time.Millisecond, func() { fired = true })
	m.Release(timer)

	m.CleanTimeout(time.Now().Add(time.Second))
	require.False(t, fired)
	require.Equal(t, 0, m.Size())
}

func TestBindReplacesCallback(t *testing.T) {
	m := NewMaster()
	first, second := false, false
	timer := m.Schedule(time.Millisecond, func() { first = true })
	timer.Bind(func() { second = true })

	m.CleanTimeout(time.Now().Add(time.Second))
	require.False(t, first)
	require.True(t, second)
}

func TestReleaseAfterFireIsNoop(t *testing.T) {
	m := NewMaster()
	timer := m.Schedule(time.Millisecond, func() {})
	m.CleanTimeout(time.Now().Add(time.Second))
	require.NotPanics(t, func() { m.Release(timer) })
}
