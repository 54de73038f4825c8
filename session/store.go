package session

import (
	"context"
	"sync"
	"time"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// WorkingSetSize bounds the in-process tier.
	WorkingSetSize int
	// SessionTTL is the wall-clock lifetime of a session; it doubles as the
	// cache TTL.
	SessionTTL time.Duration
	// SweepInterval is how often the background expiry sweep runs.
	SweepInterval time.Duration
	// LockTimeout bounds how long a turn waits for a session's lock.
	LockTimeout time.Duration
	// Cache is the optional best-effort tier; nil degrades to durable-only.
	Cache core.Cache
	// Logger receives tier failures and sweep results.
	Logger logging.Logger
}

// Store is the tiered session store. Reads check the working set, then the
// cache, then the durable store, promoting on hit. Writes go through all
// tiers: working set, cache (non-fatal on failure), durable (logged and
// flagged on failure, the operation still succeeds).
//
// Every session key is guarded by an exclusive lock. The turn processor
// acquires it for a whole turn via Lock(); the store's own mutating
// operations assume the caller already holds it when invoked from a turn,
// and the admin wrappers (Pause, Resume, Cancel) take it themselves.
type Store struct {
	durable core.DurableStore
	cache   core.Cache
	logger  logging.Logger

	working *workingSet
	locks   *keyLocks

	sessionTTL    time.Duration
	sweepInterval time.Duration
	lockTimeout   time.Duration

	done     chan struct{}
	sweeping sync.WaitGroup
	closed   bool
	mu       sync.Mutex
}

// New constructs a Store over the given durable backend with optional
// overrides. Call Start to launch the background sweep and Shutdown to
// drain it.
func New(durable core.DurableStore, optFns ...func(o *Options)) *Store {
	opts := Options{
		WorkingSetSize: 100,
		SessionTTL:     2 * time.Hour,
		SweepInterval:  5 * time.Minute,
		LockTimeout:    5 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		durable:       durable,
		cache:         opts.Cache,
		logger:        opts.Logger,
		working:       newWorkingSet(opts.WorkingSetSize),
		locks:         newKeyLocks(),
		sessionTTL:    opts.SessionTTL,
		sweepInterval: opts.SweepInterval,
		lockTimeout:   opts.LockTimeout,
		done:          make(chan struct{}),
	}
}

// SessionTTL returns the configured session lifetime.
func (s *Store) SessionTTL() time.Duration { return s.sessionTTL }

// Start launches the background expiry sweep.
func (s *Store) Start() {
	s.sweeping.Add(1)
	go func() {
		defer s.sweeping.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				n := s.CleanupExpired(context.Background())
				if n > 0 {
					s.logger.Info("expired sessions swept", "count", n)
				}
			}
		}
	}()
}

// Shutdown stops the sweep and flushes the working set to the durable tier.
func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.ErrStoreClosed
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.sweeping.Wait()

	var firstErr error
	for _, sess := range s.working.Snapshot() {
		if err := s.durable.Upsert(ctx, sess); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Lock acquires the per-session lock for a whole turn, bounded by the
// configured lock timeout. The returned release function must be called
// exactly once.
func (s *Store) Lock(ctx context.Context, sessionID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	return s.locks.Acquire(lockCtx, sessionID)
}

// TryLock acquires the lock only when free; used by the sweep.
func (s *Store) TryLock(sessionID string) (func(), bool) {
	return s.locks.TryAcquire(sessionID)
}

// LockOwner serializes session lookup and creation for one owner, so two
// simultaneous first messages resolve to a single session. The key space is
// disjoint from session ids.
func (s *Store) LockOwner(ctx context.Context, ownerID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	return s.locks.Acquire(lockCtx, "owner:"+ownerID)
}

// Get loads a session by id through the tiers. Expired sessions are
// finalized and reported as ErrSessionExpired, which callers treat the same
// as absence.
func (s *Store) Get(ctx context.Context, id string) (*core.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(time.Now().UTC()) {
		s.finalizeExpired(ctx, sess)
		return nil, core.ErrSessionExpired
	}
	return sess, nil
}

// GetActiveByOwner returns the owner's current non-terminal session, looking
// through the working set first and the durable store second.
func (s *Store) GetActiveByOwner(ctx context.Context, ownerID string) (*core.Session, error) {
	if sess := s.working.GetByOwner(ownerID); sess != nil {
		if sess.IsExpired(time.Now().UTC()) {
			s.finalizeExpired(ctx, sess)
			return nil, core.ErrSessionExpired
		}
		if core.IsTerminal(sess.State()) {
			return nil, core.ErrSessionNotFound
		}
		return sess, nil
	}

	sess, err := s.durable.FindActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(time.Now().UTC()) {
		s.finalizeExpired(ctx, sess)
		return nil, core.ErrSessionExpired
	}
	s.promote(ctx, sess)
	return sess, nil
}

// Create starts a new session for an owner/channel and persists it through
// all tiers.
func (s *Store) Create(ctx context.Context, ownerID, channel string) (*core.Session, error) {
	sess := core.NewSession(ownerID, channel, s.sessionTTL)
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save writes the session through every tier. Cache failures are absorbed;
// durable failures are logged, flagged on the session for reconciliation
// and do not fail the operation. Terminal sessions are evicted from the
// fast tiers, keeping only the durable record for audit.
func (s *Store) Save(ctx context.Context, sess *core.Session) error {
	terminal := core.IsTerminal(sess.State())

	if terminal {
		s.working.Remove(sess.ID)
		s.cacheDelete(ctx, sess.ID)
	} else {
		if evicted := s.working.Put(sess); evicted != nil {
			if err := s.durable.Upsert(ctx, evicted); err != nil {
				s.logger.Error("flush of evicted session failed", "session_id", evicted.ID, "error", err)
			}
		}
		s.cacheWrite(ctx, sess)
	}

	if err := s.durable.Upsert(ctx, sess); err != nil {
		s.logger.Error("durable write failed", "session_id", sess.ID, "error", err)
		sess.SetMetadata("needs_reconciliation", "true")
		return nil
	}
	return nil
}

// Transition moves a session to target under the store's discipline and
// persists the result. Returns false when the table rejects the move.
func (s *Store) Transition(ctx context.Context, id string, target core.State, reason string) (bool, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !sess.TransitionTo(target, reason) {
		return false, nil
	}
	return true, s.Save(ctx, sess)
}

// AppendMessage appends a message to the session's bounded history and
// persists it.
func (s *Store) AppendMessage(ctx context.Context, id string, msg core.ConversationMessage) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.AppendMessage(msg)
	return s.Save(ctx, sess)
}

// MergeField merges one collected value and persists it.
func (s *Store) MergeField(ctx context.Context, id string, f core.Field, value string, confidence float64) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.MergeField(f, value, confidence)
	return s.Save(ctx, sess)
}

// Expire forces a session into EXPIRED and evicts it from the fast tiers.
func (s *Store) Expire(ctx context.Context, id string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	s.finalizeExpired(ctx, sess)
	return nil
}

// CleanupExpired sweeps the working set and the durable store for sessions
// whose deadline passed, finalizing each one. A session whose lock is held
// by an in-flight turn is skipped and revisited next cycle.
func (s *Store) CleanupExpired(ctx context.Context) int {
	now := time.Now().UTC()
	count := 0

	for _, sess := range s.working.Snapshot() {
		if !sess.IsExpired(now) {
			continue
		}
		release, ok := s.TryLock(sess.ID)
		if !ok {
			continue
		}
		if sess.IsExpired(now) { // re-check under the lock
			s.finalizeExpired(ctx, sess)
			count++
		}
		release()
	}

	ids, err := s.durable.ListExpired(ctx, now, 100)
	if err != nil {
		s.logger.Error("expired scan failed", "error", err)
		return count
	}
	for _, id := range ids {
		if s.working.Get(id) != nil {
			continue // handled above or still active
		}
		release, ok := s.TryLock(id)
		if !ok {
			continue
		}
		sess, err := s.load(ctx, id)
		if err == nil && sess.IsExpired(now) {
			s.finalizeExpired(ctx, sess)
			count++
		}
		release()
	}
	return count
}

// ActiveCount reports the number of sessions resident in the working set.
func (s *Store) ActiveCount() int { return s.working.Len() }

// AutomationRate averages the automation score across resident sessions.
func (s *Store) AutomationRate() float64 {
	sessions := s.working.Snapshot()
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, sess := range sessions {
		sum += sess.Metrics.AutomationScore()
	}
	return sum / float64(len(sessions))
}

// Pause suspends a session. Admin wrapper: takes the session lock itself.
func (s *Store) Pause(ctx context.Context, id string) error {
	return s.adminTransition(ctx, id, core.StatePaused, "paused by administrator")
}

// Resume returns a paused session to COLLECTING.
func (s *Store) Resume(ctx context.Context, id string) error {
	return s.adminTransition(ctx, id, core.StateCollecting, "resumed by administrator")
}

// Cancel terminates a session on behalf of an operator.
func (s *Store) Cancel(ctx context.Context, id string) error {
	return s.adminTransition(ctx, id, core.StateCancelled, "cancelled by administrator")
}

func (s *Store) adminTransition(ctx context.Context, id string, target core.State, reason string) error {
	release, err := s.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	ok, err := s.Transition(ctx, id, target, reason)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrInvalidTransition
	}
	return nil
}

// load fetches a session through the tiers without expiry handling.
func (s *Store) load(ctx context.Context, id string) (*core.Session, error) {
	if sess := s.working.Get(id); sess != nil {
		return sess, nil
	}

	if blob, err := s.cacheGet(ctx, id); err == nil {
		if rec, err := core.DecodeRecord(blob); err == nil {
			sess := rec.Session()
			s.promote(ctx, sess)
			return sess, nil
		}
	}

	sess, err := s.durable.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.promote(ctx, sess)
	return sess, nil
}

// promote installs a session loaded from a slower tier into the faster ones.
// Terminal sessions stay out of the fast tiers.
func (s *Store) promote(ctx context.Context, sess *core.Session) {
	if core.IsTerminal(sess.State()) {
		return
	}
	if evicted := s.working.Put(sess); evicted != nil {
		if err := s.durable.Upsert(ctx, evicted); err != nil {
			s.logger.Error("flush of evicted session failed", "session_id", evicted.ID, "error", err)
		}
	}
	s.cacheWrite(ctx, sess)
}

// finalizeExpired transitions a session to EXPIRED, persists the terminal
// record and evicts it from the fast tiers.
func (s *Store) finalizeExpired(ctx context.Context, sess *core.Session) {
	if !core.IsTerminal(sess.State()) {
		sess.TransitionTo(core.StateExpired, "session deadline passed")
	}
	s.working.Remove(sess.ID)
	s.cacheDelete(ctx, sess.ID)
	if err := s.durable.Upsert(ctx, sess); err != nil {
		s.logger.Error("durable write failed", "session_id", sess.ID, "error", err)
	}
}

func (s *Store) cacheWrite(ctx context.Context, sess *core.Session) {
	if s.cache == nil {
		return
	}
	blob, err := core.EncodeRecord(sess.ToRecord())
	if err != nil {
		s.logger.Warn("cache encode failed", "session_id", sess.ID, "error", err)
		return
	}
	if err := s.cache.SetWithTTL(ctx, sess.ID, blob, s.sessionTTL); err != nil {
		s.logger.Warn("cache write failed", "session_id", sess.ID, "error", err)
	}
}

func (s *Store) cacheGet(ctx context.Context, id string) ([]byte, error) {
	if s.cache == nil {
		return nil, core.ErrCacheMiss
	}
	return s.cache.Get(ctx, id)
}

func (s *Store) cacheDelete(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("cache delete failed", "session_id", id, "error", err)
	}
}
