package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/fixado/dialog/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := core.NewSession("owner-1", "whatsapp:+33612345678", 2*time.Hour)
	require.True(t, sess.TransitionTo(core.StateCollecting, "start"))
	sess.MergeField(core.FieldServiceType, "plomberie", 0.92)
	sess.AppendMessage(core.NewInboundMessage("j'ai une fuite d'eau"))

	require.NoError(t, s.Upsert(ctx, sess))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, core.StateCollecting, got.State())
	assert.Equal(t, "plomberie", got.Collected.Get(core.FieldServiceType).Value)
	require.Len(t, got.RecentMessages(), 1)
	assert.Equal(t, "j'ai une fuite d'eau", got.RecentMessages()[0].Content)

	// Upsert again after mutation: update, not duplicate.
	sess.MergeField(core.FieldLocation, "75011 Paris", 0.8)
	require.NoError(t, s.Upsert(ctx, sess))
	got, err = s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Collected.Has(core.FieldLocation))
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStore_FindActiveByOwnerSkipsTerminal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	done := core.NewSession("owner-1", "chan", time.Hour)
	require.True(t, done.TransitionTo(core.StateCancelled, "cancelled"))
	require.NoError(t, s.Upsert(ctx, done))

	_, err := s.FindActiveByOwner(ctx, "owner-1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	live := core.NewSession("owner-1", "chan", time.Hour)
	require.NoError(t, s.Upsert(ctx, live))

	got, err := s.FindActiveByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
}

func TestStore_ListExpired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	expired := core.NewSession("owner-1", "chan", -time.Minute)
	require.NoError(t, s.Upsert(ctx, expired))

	fresh := core.NewSession("owner-2", "chan", time.Hour)
	require.NoError(t, s.Upsert(ctx, fresh))

	terminal := core.NewSession("owner-3", "chan", -time.Minute)
	require.True(t, terminal.TransitionTo(core.StateExpired, "swept"))
	require.NoError(t, s.Upsert(ctx, terminal))

	ids, err := s.ListExpired(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{expired.ID}, ids)
}

func TestStore_AuditTrail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordAudit(ctx, core.AuditRecord{
		SessionID: "sess-1",
		OwnerID:   "owner-1",
		Kind:      "escalation",
		Detail:    "je veux parler à un responsable",
	}))

	audits, err := s.AuditsForSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "escalation", audits[0].Kind)
	assert.NotEmpty(t, audits[0].ID)
	assert.False(t, audits[0].CreatedAt.IsZero())
}
