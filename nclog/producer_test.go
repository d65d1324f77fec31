package nclog

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProducerRegistryStableWithinGoroutine(t *testing.T) {
	var reg producerRegistry
	first := reg.idFor()
	second := reg.idFor()
	require.Equal(t, first, second)
}

func TestProducerRegistryDistinctAcrossGoroutines(t *testing.T) {
	var reg producerRegistry
	const n = 16
	ids := make([]uint64, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i] = reg.idFor()
		}(i)
	}
	wg.Wait()

	seen := map[uint64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	require.Len(t, seen, n)
}

func TestCallerInfoCapturesThisFile(t *testing.T) {
	file, function, line := callerInfo(1)
	require.Equal(t, "producer_test.go", file)
	require.True(t, strings.HasSuffix(function, "TestCallerInfoCapturesThisFile"))
	require.Greater(t, line, 0)
}
