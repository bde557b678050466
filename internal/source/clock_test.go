package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualClock_AdvancesOnSleep(t *testing.T) {
	clock := NewVirtualClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())

	require.NoError(t, clock.Sleep(context.Background(), 250*time.Millisecond))
	assert.Equal(t, Epoch.Add(250*time.Millisecond), clock.Now())

	clock.Advance(-time.Second)
	assert.Equal(t, Epoch.Add(250*time.Millisecond), clock.Now())
}

func TestVirtualClock_CancelledSleepDoesNotAdvance(t *testing.T) {
	clock := NewVirtualClock(Epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clock.Sleep(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Epoch, clock.Now())
}

func TestWallClock_SleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := WallClock{}.Sleep(ctx, 10*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWallClock_ZeroSleep(t *testing.T) {
	require.NoError(t, WallClock{}.Sleep(context.Background(), 0))
}
