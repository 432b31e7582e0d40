package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStepClock_StartsAtStart(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	assert.Equal(t, epoch, clock.Current())
}

func TestStepClock_NowAdvancesMonotonically(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)

	// First call returns start
	assert.Equal(t, epoch, clock.Now())

	// Subsequent calls advance by one step
	assert.Equal(t, epoch.Add(1*time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Now())
	assert.Equal(t, epoch.Add(3*time.Second), clock.Current())
}

func TestStepClock_ZeroStepFreezes(t *testing.T) {
	clock := NewStepClock(epoch, 0)
	assert.Equal(t, clock.Now(), clock.Now())
}

func TestStepClock_AdvanceAndReset(t *testing.T) {
	clock := NewStepClockMillis(1_000, time.Millisecond)
	clock.Now()
	clock.Advance(time.Hour)
	assert.Equal(t, int64(1_000+1+3_600_000), clock.Current().UnixMilli())

	clock.Reset()
	assert.Equal(t, int64(1_000), clock.Now().UnixMilli())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClockMillis(0, time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]int64, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]int64, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now().UnixMilli()
			}
		}(i)
	}

	wg.Wait()

	seen := make(map[int64]bool)
	for i := range results {
		for _, v := range results[i] {
			require.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("pay")
	assert.Equal(t, "pay-0001", ids.Next())
	assert.Equal(t, "pay-0002", ids.Next())

	assert.Equal(t, "id-0001", NewSequentialIDs("").Next())
}
