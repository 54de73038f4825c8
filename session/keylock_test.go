package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fixado/dialog/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLocks_Exclusive(t *testing.T) {
	locks := newKeyLocks()

	release, err := locks.Acquire(context.Background(), "k")
	require.NoError(t, err)

	_, ok := locks.TryAcquire("k")
	assert.False(t, ok)

	// A different key is independent.
	otherRelease, ok := locks.TryAcquire("other")
	require.True(t, ok)
	otherRelease()

	release()
	release2, ok := locks.TryAcquire("k")
	require.True(t, ok)
	release2()
}

func TestKeyLocks_AcquireTimesOut(t *testing.T) {
	locks := newKeyLocks()
	release, err := locks.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(ctx, "k")
	assert.ErrorIs(t, err, core.ErrLockTimeout)
}

func TestKeyLocks_EntriesAreReclaimed(t *testing.T) {
	locks := newKeyLocks()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				release, err := locks.Acquire(context.Background(), "shared")
				if err == nil {
					release()
				}
			}
		}()
	}
	wg.Wait()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks, "released entries must be reclaimed")
}
