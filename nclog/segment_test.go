package nclog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentClaimAndPublish(t *testing.T) {
	seg := newSegment()
	idx, ok := seg.claim()
	require.True(t, ok)
	require.Equal(t, uint32(0), idx)

	rec := newRecord(Info, 1, "f.go", "g", 1, 0)
	full := seg.publish(idx, rec)
	require.False(t, full)

	got, ok := seg.tryPop(idx)
	require.True(t, ok)
	require.Same(t, rec, got)
}

func TestSegmentTryPopBeforePublishFails(t *testing.T) {
	seg := newSegment()
	idx, ok := seg.claim()
	require.True(t, ok)

	_, ok = seg.tryPop(idx)
	require.False(t, ok)
}

func TestSegmentClaimExhaustsAtCapacity(t *testing.T) {
	seg := newSegment()
	for i := 0; i < segmentCapacity; i++ {
		_, ok := seg.claim()
		require.True(t, ok)
	}
	_, ok := seg.claim()
	require.False(t, ok)
}

func TestSegmentPublishSignalsFullOnLastSlot(t *testing.T) {
	seg := newSegment()
	var lastFull bool
	for i := 0; i < segmentCapacity; i++ {
		idx, _ := seg.claim()
		lastFull = seg.publish(idx, newRecord(Info, 1, "f.go", "g", int32(i), 0))
	}
	require.True(t, lastFull)
}

func TestSegmentConcurrentClaimsAreDistinct(t *testing.T) {
	seg := newSegment()
	const n = 64
	seen := make([]bool, segmentCapacity)
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			idx, ok := seg.claim()
			if !ok {
				return
			}
			mu.Lock()
			require.False(t, seen[idx])
			seen[idx] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
}
