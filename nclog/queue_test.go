package nclog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// drainAll walks every segment in q from the oldest to the current
// write segment, collecting every published record in order. Used only
// by tests; the real drain goroutine in logger.go does this
// incrementally and respects shutdown.
func drainAll(t *testing.T, q *queue, want int) []*Record {
	t.Helper()
	var out []*Record
	cur := q.peekOldest()
	idx := uint32(0)
	for len(out) < want {
		rec, ok := cur.tryPop(idx)
		if !ok {
			continue
		}
		out = append(out, rec)
		idx++
		if idx >= uint32(segmentCapacity) {
			next := q.retireAndAdvance(cur)
			for next == nil {
				next = q.retireAndAdvance(cur)
			}
			cur = next
			idx = 0
		}
	}
	return out
}

func TestQueueSingleProducerOrder(t *testing.T) {
	q := newQueue()
	const n = 500
	for i := 0; i < n; i++ {
		rec := newRecord(Info, 1, "f.go", "g", int32(i), int64(i))
		q.push(rec)
	}

	out := drainAll(t, q, n)
	require.Len(t, out, n)
	for i, rec := range out {
		require.Equal(t, int32(i), rec.Line)
	}
}

func TestQueueMultiProducerPreservesPerProducerOrder(t *testing.T) {
	q := newQueue()
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(producerID uint64) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				rec := newRecord(Info, producerID, "f.go", "g", int32(i), 0)
				q.push(rec)
			}
		}(uint64(p))
	}
	wg.Wait()

	out := drainAll(t, q, producers*perProducer)
	require.Len(t, out, producers*perProducer)

	lastSeen := make(map[uint64]int32)
	for _, rec := range out {
		prev, seen := lastSeen[rec.ProducerID]
		if seen {
			require.Greater(t, rec.Line, prev)
		}
		lastSeen[rec.ProducerID] = rec.Line
	}
	require.Len(t, lastSeen, producers)
}

func TestQueueRotatesAcrossSegmentBoundary(t *testing.T) {
	q := newQueue()
	n := segmentCapacity*2 + 10
	for i := 0; i < n; i++ {
		q.push(newRecord(Info, 1, "f.go", "g", int32(i), 0))
	}

	out := drainAll(t, q, n)
	require.Len(t, out, n)
	for i, rec := range out {
		require.Equal(t, int32(i), rec.Line)
	}
}
