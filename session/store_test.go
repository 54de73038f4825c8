package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fixado/dialog/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, optFns ...func(o *Options)) (*Store, *MemoryDurable) {
	t.Helper()
	durable := NewMemoryDurable()
	opts := append([]func(o *Options){func(o *Options) {
		o.Cache = NewMemoryCache()
		o.SessionTTL = time.Hour
		o.SweepInterval = time.Hour // tests trigger sweeps explicitly
	}}, optFns...)
	return New(durable, opts...), durable
}

func TestStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "whatsapp:+33612345678")
	require.NoError(t, err)

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	byOwner, err := s.GetActiveByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, byOwner.ID)
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStore_ExpiredSessionBehavesAsAbsent(t *testing.T) {
	s, durable := newTestStore(t, func(o *Options) { o.SessionTTL = -time.Minute })
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)

	_, err = s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, core.ErrSessionExpired)

	_, err = s.GetActiveByOwner(ctx, "owner-1")
	assert.True(t, errors.Is(err, core.ErrSessionExpired) || errors.Is(err, core.ErrSessionNotFound))

	// The durable record survives, finalized as EXPIRED.
	rec, err := durable.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StateExpired, rec.State())
	assert.Zero(t, s.ActiveCount())
}

func TestStore_CacheMissFallsThroughToDurable(t *testing.T) {
	cache := NewMemoryCache()
	durable := NewMemoryDurable()
	s := New(durable, func(o *Options) {
		o.Cache = cache
		o.SessionTTL = time.Hour
	})
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)

	// Drop the fast tiers; the durable store remains the source of truth.
	s.working.Remove(sess.ID)
	require.NoError(t, cache.Delete(ctx, sess.ID))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	// The hit was promoted back into the working set.
	assert.NotNil(t, s.working.Get(sess.ID))
}

func TestStore_NilCacheDegradesGracefully(t *testing.T) {
	durable := NewMemoryDurable()
	s := New(durable, func(o *Options) { o.SessionTTL = time.Hour })
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)
	s.working.Remove(sess.ID)

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestStore_ConcurrentMergesAreSerialized(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			release, err := s.Lock(ctx, sess.ID)
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			f := core.FieldServiceType
			v := "plomberie"
			if n == 1 {
				f = core.FieldLocation
				v = "75011 Paris"
			}
			assert.NoError(t, s.MergeField(ctx, sess.ID, f, v, 0.9))
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	// No lost update: both merges survived.
	assert.True(t, got.Collected.Has(core.FieldServiceType))
	assert.True(t, got.Collected.Has(core.FieldLocation))
}

func TestStore_LockTimeout(t *testing.T) {
	s, _ := newTestStore(t, func(o *Options) { o.LockTimeout = 20 * time.Millisecond })
	ctx := context.Background()

	release, err := s.Lock(ctx, "busy-key")
	require.NoError(t, err)
	defer release()

	_, err = s.Lock(ctx, "busy-key")
	assert.ErrorIs(t, err, core.ErrLockTimeout)
}

func TestStore_WorkingSetEvictsOldestToDurable(t *testing.T) {
	durable := NewMemoryDurable()
	s := New(durable, func(o *Options) {
		o.WorkingSetSize = 2
		o.SessionTTL = time.Hour
	})
	ctx := context.Background()

	first, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = s.Create(ctx, "owner-2", "chan")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = s.Create(ctx, "owner-3", "chan")
	require.NoError(t, err)

	assert.Equal(t, 2, s.ActiveCount())
	assert.Nil(t, s.working.Get(first.ID))

	// Evictee still loads through the durable tier.
	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestStore_TerminalSaveEvictsFromFastTiers(t *testing.T) {
	s, durable := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)
	require.True(t, sess.TransitionTo(core.StateCancelled, "user cancelled"))
	require.NoError(t, s.Save(ctx, sess))

	assert.Zero(t, s.ActiveCount())
	rec, err := durable.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StateCancelled, rec.State())
}

func TestStore_CleanupExpired(t *testing.T) {
	s, durable := newTestStore(t, func(o *Options) { o.SessionTTL = -time.Minute })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("owner-%d", i), "chan")
		require.NoError(t, err)
	}

	n := s.CleanupExpired(ctx)
	assert.Equal(t, 3, n)
	assert.Zero(t, s.ActiveCount())

	ids, err := durable.ListExpired(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, ids, "finalized sessions are terminal and no longer listed")
}

func TestStore_CleanupSkipsLockedSessions(t *testing.T) {
	s, _ := newTestStore(t, func(o *Options) { o.SessionTTL = -time.Minute })
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)

	release, ok := s.TryLock(sess.ID)
	require.True(t, ok)

	assert.Zero(t, s.CleanupExpired(ctx), "locked session must be skipped")
	release()
	assert.Equal(t, 1, s.CleanupExpired(ctx))
}

func TestStore_AdminPauseResumeCancel(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)
	require.True(t, sess.TransitionTo(core.StateCollecting, "start"))
	require.NoError(t, s.Save(ctx, sess))

	require.NoError(t, s.Pause(ctx, sess.ID))
	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatePaused, got.State())

	require.NoError(t, s.Resume(ctx, sess.ID))
	got, _ = s.Get(ctx, sess.ID)
	assert.Equal(t, core.StateCollecting, got.State())

	require.NoError(t, s.Cancel(ctx, sess.ID))
	_, err = s.Get(ctx, sess.ID)
	require.NoError(t, err) // terminal but not expired: still readable from durable

	// Resuming a cancelled session is rejected.
	assert.ErrorIs(t, s.Resume(ctx, sess.ID), core.ErrInvalidTransition)
}

func TestStore_ShutdownFlushesWorkingSet(t *testing.T) {
	s, durable := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)
	sess.MergeField(core.FieldServiceType, "plomberie", 0.9)

	s.Start()
	require.NoError(t, s.Shutdown(ctx))

	rec, err := durable.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, rec.Collected.Has(core.FieldServiceType))

	assert.ErrorIs(t, s.Shutdown(ctx), core.ErrStoreClosed)
}

func TestStore_AutomationRate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.Zero(t, s.AutomationRate())

	sess, err := s.Create(ctx, "owner-1", "chan")
	require.NoError(t, err)
	sess.AppendMessage(core.NewInboundMessage("bonjour"))
	sess.AppendMessage(core.NewOutboundMessage("Bonjour !", "greet"))
	require.NoError(t, s.Save(ctx, sess))

	assert.InDelta(t, 100, s.AutomationRate(), 1e-9)
}
