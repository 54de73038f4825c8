package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/extract"
	"github.com/fixado/dialog/interrupt"
	"github.com/fixado/dialog/session"
)

type failingHook struct{ err error }

func (h failingHook) OnComplete(context.Context, *core.Session) error { return h.err }

func newTestStore(t *testing.T) (*session.Store, *session.MemoryDurable) {
	t.Helper()
	mem := session.NewMemoryDurable()
	store := session.New(mem)
	t.Cleanup(func() { _ = store.Shutdown(context.Background()) })
	return store, mem
}

func confirmingSession(t *testing.T, store *session.Store) *core.Session {
	t.Helper()
	sess, err := store.Create(context.Background(), "owner-1", "web")
	require.NoError(t, err)
	require.True(t, sess.TransitionTo(core.StateCollecting, "test setup"))
	sess.MergeField(core.FieldServiceType, "plomberie", 0.9)
	sess.MergeField(core.FieldLocation, "11 rue de la Roquette, 75011 Paris", 0.85)
	sess.MergeField(core.FieldDescription, "fuite d'eau sous l'évier", 0.8)
	require.True(t, sess.TransitionTo(core.StateValidating, "test setup"))
	require.True(t, sess.TransitionTo(core.StateConfirming, "test setup"))
	require.NoError(t, store.Save(context.Background(), sess))
	return sess
}

func TestProcessor_FirstTurnStartsCollecting(t *testing.T) {
	store, _ := newTestStore(t)
	mock := extract.NewMockExtractor()
	mock.AddResult("J'ai une fuite d'eau", &extract.Result{
		Fields: map[core.Field]extract.Candidate{
			core.FieldDescription: {Value: "fuite d'eau", Confidence: 0.8},
		},
	})
	p := New(store, mock, nil)

	res, err := p.Process(context.Background(), "owner-1", "web", "J'ai une fuite d'eau")
	require.NoError(t, err)

	assert.Equal(t, core.StateCollecting, res.State)
	assert.Contains(t, res.MissingFields, core.FieldServiceType)
	assert.Contains(t, res.MissingFields, core.FieldLocation)
	assert.NotContains(t, res.MissingFields, core.FieldDescription)
	assert.True(t, res.Collected.Has(core.FieldDescription))
	assert.Contains(t, res.Response, "Bonjour")
	assert.Contains(t, res.Response, fieldQuestions[core.FieldServiceType])
	assert.InDelta(t, 25, res.CompletionProgress, 0.01)
}

func TestProcessor_FullIntakeFlow(t *testing.T) {
	store, mem := newTestStore(t)
	mock := extract.NewMockExtractor()
	mock.AddResult("J'ai une fuite d'eau sous l'évier", &extract.Result{
		Fields: map[core.Field]extract.Candidate{
			core.FieldServiceType: {Value: "plomberie", Confidence: 0.9},
			core.FieldDescription: {Value: "fuite d'eau sous l'évier", Confidence: 0.85},
		},
	})
	mock.AddResult("11 rue de la Roquette, 75011 Paris", &extract.Result{
		Fields: map[core.Field]extract.Candidate{
			core.FieldLocation: {Value: "11 rue de la Roquette, 75011 Paris", Confidence: 0.9},
		},
	})
	p := New(store, mock, nil)
	ctx := context.Background()

	first, err := p.Process(ctx, "owner-1", "web", "J'ai une fuite d'eau sous l'évier")
	require.NoError(t, err)
	assert.Equal(t, core.StateCollecting, first.State)
	assert.Equal(t, []core.Field{core.FieldLocation}, first.MissingFields)

	second, err := p.Process(ctx, "owner-1", "web", "11 rue de la Roquette, 75011 Paris")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID, "turns must share one session")
	assert.Equal(t, core.StateConfirming, second.State)
	assert.Contains(t, second.Response, "récapitulatif")
	assert.Empty(t, second.MissingFields)

	third, err := p.Process(ctx, "owner-1", "web", "oui")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, third.State)
	assert.Contains(t, third.Response, "transmise")

	// The turn passed through PROCESSING on its way out.
	stored, err := mem.Get(ctx, third.SessionID)
	require.NoError(t, err)
	var sawProcessing bool
	for _, tr := range stored.StateHistory {
		if tr.To == core.StateProcessing {
			sawProcessing = true
		}
	}
	assert.True(t, sawProcessing)
}

func TestProcessor_ConfirmationDeniedReopensCollection(t *testing.T) {
	store, _ := newTestStore(t)
	p := New(store, extract.NewMockExtractor(), nil)
	confirmingSession(t, store)

	res, err := p.Process(context.Background(), "owner-1", "web", "Non, l'adresse est fausse")
	require.NoError(t, err)

	assert.Equal(t, core.StateCollecting, res.State)
	assert.Contains(t, res.Response, "corriger")
}

func TestProcessor_CompletionHookFailureKeepsProcessing(t *testing.T) {
	store, _ := newTestStore(t)
	p := New(store, extract.NewMockExtractor(), nil, func(o *Options) {
		o.Hook = failingHook{err: errors.New("marketplace unavailable")}
	})
	confirmingSession(t, store)

	res, err := p.Process(context.Background(), "owner-1", "web", "oui")
	require.NoError(t, err)

	assert.Equal(t, core.StateProcessing, res.State)
	assert.Contains(t, res.Response, "en cours de traitement")
}

func TestProcessor_CancellationClearsAndResets(t *testing.T) {
	store, _ := newTestStore(t)
	p := New(store, extract.NewMockExtractor(), nil)
	ctx := context.Background()

	sess, err := store.Create(ctx, "owner-1", "web")
	require.NoError(t, err)
	require.True(t, sess.TransitionTo(core.StateCollecting, "test setup"))
	sess.MergeField(core.FieldServiceType, "plomberie", 0.9)
	require.NoError(t, store.Save(ctx, sess))

	res, err := p.Process(ctx, "owner-1", "web", "annule tout")
	require.NoError(t, err)

	assert.Equal(t, core.InterruptionCancellation, res.Interruption)
	assert.Equal(t, core.StateInitial, res.State)
	assert.False(t, res.Collected.Has(core.FieldServiceType))
	assert.NotEmpty(t, res.RecoveryActions)
}

func TestProcessor_EscalationKeepsDataAndAudits(t *testing.T) {
	store, mem := newTestStore(t)
	manager := interrupt.New(nil, func(o *interrupt.Options) { o.Audit = mem })
	p := New(store, extract.NewMockExtractor(), manager)
	ctx := context.Background()

	sess, err := store.Create(ctx, "owner-1", "web")
	require.NoError(t, err)
	require.True(t, sess.TransitionTo(core.StateCollecting, "test setup"))
	sess.MergeField(core.FieldServiceType, "plomberie", 0.9)
	require.NoError(t, store.Save(ctx, sess))

	res, err := p.Process(ctx, "owner-1", "web", "je veux parler à un responsable")
	require.NoError(t, err)

	assert.Equal(t, core.InterruptionEscalation, res.Interruption)
	assert.Equal(t, core.StateEscalated, res.State)
	assert.True(t, res.Collected.Has(core.FieldServiceType))

	audits := mem.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, "escalation", audits[0].Kind)
}

func TestProcessor_ResumeAfterComplaint(t *testing.T) {
	store, _ := newTestStore(t)
	p := New(store, extract.NewMockExtractor(), nil)
	ctx := context.Background()

	sess, err := store.Create(ctx, "owner-1", "web")
	require.NoError(t, err)
	require.True(t, sess.TransitionTo(core.StateCollecting, "test setup"))
	sess.MergeField(core.FieldServiceType, "plomberie", 0.9)
	require.NoError(t, store.Save(ctx, sess))

	complaint, err := p.Process(ctx, "owner-1", "web", "c'est scandaleux ce délai")
	require.NoError(t, err)
	require.Equal(t, core.InterruptionComplaint, complaint.Interruption)

	resumed, err := p.Process(ctx, "owner-1", "web", "bon, reprenons")
	require.NoError(t, err)

	assert.Contains(t, resumed.RecoveryActions, "restore_saved_context")
	assert.Contains(t, resumed.Response, "Reprenons")
	assert.True(t, resumed.Collected.Has(core.FieldServiceType))
}

func TestProcessor_ProviderFailureDegradesToKeywords(t *testing.T) {
	store, _ := newTestStore(t)
	mock := extract.NewMockExtractor()
	mock.FailWith(errors.New("provider down"))
	chain := extract.NewChain(mock, func(o *extract.ChainOptions) {
		o.MaxRetries = 0
		o.Backoff = 0
	})
	p := New(store, chain, nil)

	res, err := p.Process(context.Background(), "owner-1", "web", "J'ai une fuite d'eau dans la cuisine")
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, core.StateCollecting, res.State)
	assert.Equal(t, "plomberie", res.Collected.Get(core.FieldServiceType).Value)
}

func TestProcessor_RejectedFieldIsReAsked(t *testing.T) {
	store, _ := newTestStore(t)
	mock := extract.NewMockExtractor()
	mock.AddResult("je veux faire démolir un mur", &extract.Result{
		Fields: map[core.Field]extract.Candidate{
			core.FieldServiceType: {Value: "démolition", Confidence: 0.9},
		},
	})
	p := New(store, mock, nil)

	res, err := p.Process(context.Background(), "owner-1", "web", "je veux faire démolir un mur")
	require.NoError(t, err)

	require.Len(t, res.ValidationIssues, 1)
	assert.Contains(t, res.ValidationIssues[0], "démolition")
	assert.False(t, res.Collected.Has(core.FieldServiceType))
	assert.Contains(t, res.MissingFields, core.FieldServiceType)
}

func TestProcessor_TurnBehindCompletionStartsFresh(t *testing.T) {
	store, _ := newTestStore(t)
	mock := extract.NewMockExtractor()
	p := New(store, mock, nil)
	ctx := context.Background()

	sess := confirmingSession(t, store)

	// Hold the turn lock so the duplicate "oui" queues behind it, then
	// complete the session before releasing.
	unlock, err := store.Lock(ctx, sess.ID)
	require.NoError(t, err)

	type outcome struct {
		res *core.TurnResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.Process(ctx, "owner-1", "web", "oui")
		done <- outcome{res, err}
	}()

	time.Sleep(50 * time.Millisecond)
	require.True(t, sess.TransitionTo(core.StateProcessing, "user confirmed summary"))
	require.True(t, sess.TransitionTo(core.StateCompleted, "request submitted"))
	require.NoError(t, store.Save(ctx, sess))
	unlock()

	out := <-done
	require.NoError(t, out.err)

	// The waiting turn must not continue the submitted request: it gets a
	// fresh session, not a confirmation prompt on a terminal one.
	assert.NotEqual(t, sess.ID, out.res.SessionID)
	assert.Equal(t, core.StateCollecting, out.res.State)
	assert.NotContains(t, out.res.Response, "récapitulatif")
	assert.False(t, out.res.Collected.Has(core.FieldServiceType))
}

func TestProcessor_SimultaneousFirstMessagesShareSession(t *testing.T) {
	store, _ := newTestStore(t)
	mock := extract.NewMockExtractor()
	p := New(store, mock, nil)

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Process(context.Background(), "owner-9", "web", "bonjour")
			assert.NoError(t, err)
			ids[i] = res.SessionID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "concurrent first messages must resolve to one session")
	}
	assert.Equal(t, 1, store.ActiveCount())
}

func TestProcessor_PhaseTracksAskedField(t *testing.T) {
	store, mem := newTestStore(t)
	mock := extract.NewMockExtractor()
	mock.AddResult("j'ai besoin d'un plombier", &extract.Result{
		Fields: map[core.Field]extract.Candidate{
			core.FieldServiceType: {Value: "plomberie", Confidence: 0.9},
		},
	})
	mock.AddResult("11 rue de la Roquette, 75011 Paris", &extract.Result{
		Fields: map[core.Field]extract.Candidate{
			core.FieldLocation: {Value: "11 rue de la Roquette, 75011 Paris", Confidence: 0.9},
		},
	})
	p := New(store, mock, nil)
	ctx := context.Background()

	first, err := p.Process(ctx, "owner-1", "web", "j'ai besoin d'un plombier")
	require.NoError(t, err)
	stored, err := mem.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseLocation, stored.Phase, "next unmet field is the location")

	second, err := p.Process(ctx, "owner-1", "web", "11 rue de la Roquette, 75011 Paris")
	require.NoError(t, err)
	stored, err = mem.Get(ctx, second.SessionID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseDescription, stored.Phase, "next unmet field is the description")
}

func TestProcessor_ActivityExtendsDeadline(t *testing.T) {
	store, mem := newTestStore(t)
	mock := extract.NewMockExtractor()
	p := New(store, mock, nil)
	ctx := context.Background()

	sess, err := store.Create(ctx, "owner-1", "web")
	require.NoError(t, err)
	sess.ExpiresAt = time.Now().UTC().Add(time.Minute)
	require.NoError(t, store.Save(ctx, sess))

	res, err := p.Process(ctx, "owner-1", "web", "bonjour")
	require.NoError(t, err)
	require.Equal(t, sess.ID, res.SessionID)

	stored, err := mem.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.After(time.Now().UTC().Add(time.Hour)),
		"a processed turn slides the session deadline")
}
