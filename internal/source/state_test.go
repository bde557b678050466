package source

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_UpdateReturnsPriorValue(t *testing.T) {
	acc := NewAccumulator("counter", 10)
	assert.Equal(t, "counter", acc.Name())
	assert.Equal(t, int64(10), acc.Initial())

	before := acc.Update(func(v int64) int64 { return v + 5 })
	assert.Equal(t, int64(10), before)
	assert.Equal(t, int64(15), acc.Load())
	assert.Equal(t, int64(1), acc.Writes())

	// No-op updates are not counted as writes.
	acc.Update(func(v int64) int64 { return v })
	assert.Equal(t, int64(1), acc.Writes())

	acc.Reset()
	assert.Equal(t, int64(10), acc.Load())
	assert.Equal(t, int64(0), acc.Writes())
}

func TestAccumulator_ConcurrentUpdatesAreAtomic(t *testing.T) {
	acc := NewAccumulator("counter", 0)
	const goroutines = 100
	const perGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				acc.Update(func(v int64) int64 { return v + 1 })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*perGoroutine), acc.Load())
}

func TestAccumulator_ExclusiveSerializesSections(t *testing.T) {
	acc := NewAccumulator("counter", 0)
	const goroutines = 50

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			acc.Exclusive(func() {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				acc.Reset()
				before := acc.Update(func(v int64) int64 { return v + 1 })
				assert.Equal(t, int64(0), before)

				mu.Lock()
				inside--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, int64(1), acc.Load())
}

func TestStatePollution_SaturatesWithoutReset(t *testing.T) {
	acc := NewAccumulator("leak", 0)
	src := &StatePollution{State: acc, Limit: 5, Increment: 1, PollutionProbability: 1}

	var passes []bool
	for i := 0; i < 10; i++ {
		out, err := Sample(context.Background(), src, SampleOptions{})
		require.NoError(t, err)
		passes = append(passes, out.Pass)
		assert.Equal(t, int64(i), *out.Metrics.StateBefore)
	}

	assert.Equal(t, []bool{true, true, true, true, true, false, false, false, false, false}, passes)
	assert.Equal(t, int64(10), acc.Load())
}

func TestStatePollution_InterleavingOnlyWhenConcurrent(t *testing.T) {
	acc := NewAccumulator("shared", 0)
	src := &StatePollution{State: acc, Limit: 1, Increment: 1, InterleaveProbability: 1}

	sequential, err := Sample(context.Background(), src, SampleOptions{})
	require.NoError(t, err)
	assert.True(t, sequential.Pass)
	assert.Equal(t, int64(0), *sequential.Metrics.StateBefore)

	concurrent, err := Sample(context.Background(), src, SampleOptions{Concurrent: true})
	require.NoError(t, err)
	assert.False(t, concurrent.Pass)
	assert.Equal(t, int64(1), *concurrent.Metrics.StateBefore)

	// Observing a peer's write does not mutate the accumulator.
	assert.Equal(t, int64(0), acc.Load())
}

func TestStatePollution_ExposesHandle(t *testing.T) {
	acc := NewAccumulator("shared", 3)
	var src Source = &StatePollution{State: acc}

	stateful, ok := src.(Stateful)
	require.True(t, ok)
	assert.Same(t, acc, stateful.StateHandle())
}
