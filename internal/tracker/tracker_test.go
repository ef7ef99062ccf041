package tracker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartTake(t *testing.T) {
	require := require.New(t)
	tr := New()

	now := time.Now()
	tr.Start("q1", Entry{Started: now})
	require.Equal(1, tr.Len())

	entry, ok := tr.Take("q1")
	require.True(ok)
	require.Equal(now, entry.Started)
	require.Equal(0, tr.Len())

	// An id is consumed exactly once.
	_, ok = tr.Take("q1")
	require.False(ok)
}

func TestTakeMiss(t *testing.T) {
	require := require.New(t)
	tr := New()

	_, ok := tr.Take("never-started")
	require.False(ok)
	require.Equal(0, tr.Len())
}

func TestDuplicateStartOverwrites(t *testing.T) {
	require := require.New(t)
	tr := New()

	first := time.Now().Add(-time.Minute)
	second := time.Now()

	tr.Start("q1", Entry{Started: first})
	tr.Start("q1", Entry{Started: second})
	require.Equal(1, tr.Len())

	entry, ok := tr.Take("q1")
	require.True(ok)
	require.Equal(second, entry.Started)
}

func TestConcurrentTakeConsumesOnce(t *testing.T) {
	require := require.New(t)
	tr := New()

	const workers = 16

	for round := 0; round < 100; round++ {
		id := fmt.Sprintf("q%d", round)
		tr.Start(id, Entry{Started: time.Now()})

		var wg sync.WaitGroup
		var hits atomic.Int64

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := tr.Take(id); ok {
					hits.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(int64(1), hits.Load())
		require.Equal(0, tr.Len())
	}
}
