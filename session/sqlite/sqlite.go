// Package sqlite provides the durable session backend and audit sink on
// SQLite, via the modernc.org/sqlite driver. It is the source of truth on
// cache miss; terminal sessions are updated in place and never deleted so
// the audit trail outlives eviction from the faster tiers.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fixado/dialog/core"
)

// Store is a core.DurableStore and core.AuditSink backed by SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ core.DurableStore = (*Store)(nil)
	_ core.AuditSink    = (*Store)(nil)
)

// Open opens (or creates) the session database at path and initializes the
// schema. Pass ":memory:" for an in-memory database (used by tests).
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" under concurrent turns.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an existing database handle, initializing the schema. The
// caller remains responsible for the handle's driver and lifetime.
func NewFromDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			current_state TEXT NOT NULL,
			phase TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			terminal INTEGER NOT NULL DEFAULT 0,
			prior_states BLOB,
			state_history BLOB,
			collected BLOB,
			messages BLOB,
			metrics BLOB,
			interruption BLOB,
			metadata BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id, updated_at);
		CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(terminal, expires_at);
		CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session_id, created_at);`,
	)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Upsert implements core.DurableStore.
func (s *Store) Upsert(ctx context.Context, sess *core.Session) error {
	rec := sess.ToRecord()

	blobs := make([][]byte, 0, 7)
	for _, v := range []any{rec.PriorStates, rec.StateHistory, rec.Collected, rec.Messages, rec.Metrics, rec.Interruption, rec.Metadata} {
		blob, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", rec.ID, err)
		}
		blobs = append(blobs, blob)
	}

	terminal := 0
	if core.IsTerminal(rec.Current) {
		terminal = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, owner_id, channel, current_state, phase, created_at, updated_at, expires_at, terminal,
			prior_states, state_history, collected, messages, metrics, interruption, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_state = excluded.current_state,
			phase = excluded.phase,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at,
			terminal = excluded.terminal,
			prior_states = excluded.prior_states,
			state_history = excluded.state_history,
			collected = excluded.collected,
			messages = excluded.messages,
			metrics = excluded.metrics,
			interruption = excluded.interruption,
			metadata = excluded.metadata`,
		rec.ID, rec.OwnerID, rec.Channel, string(rec.Current), string(rec.Phase),
		rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(), rec.ExpiresAt.UnixMilli(), terminal,
		blobs[0], blobs[1], blobs[2], blobs[3], blobs[4], blobs[5], blobs[6],
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", rec.ID, err)
	}
	return nil
}

const sessionColumns = `id, owner_id, channel, current_state, phase, created_at, updated_at, expires_at,
	prior_states, state_history, collected, messages, metrics, interruption, metadata`

// Get implements core.DurableStore.
func (s *Store) Get(ctx context.Context, id string) (*core.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// FindActiveByOwner implements core.DurableStore.
func (s *Store) FindActiveByOwner(ctx context.Context, ownerID string) (*core.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE owner_id = ? AND terminal = 0
		ORDER BY updated_at DESC
		LIMIT 1`, ownerID)
	return scanSession(row)
}

// ListExpired implements core.DurableStore.
func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions
		WHERE terminal = 0 AND expires_at < ?
		ORDER BY expires_at
		LIMIT ?`, now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordAudit implements core.AuditSink.
func (s *Store) RecordAudit(ctx context.Context, rec core.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = core.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, session_id, owner_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.OwnerID, rec.Kind, rec.Detail, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// AuditsForSession returns the audit trail of one session, oldest first.
func (s *Store) AuditsForSession(ctx context.Context, sessionID string) ([]core.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, owner_id, kind, detail, created_at
		FROM audit_log WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var out []core.AuditRecord
	for rows.Next() {
		var rec core.AuditRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.OwnerID, &rec.Kind, &rec.Detail, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close implements core.DurableStore.
func (s *Store) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*core.Session, error) {
	var rec core.SessionRecord
	var state, phase string
	var createdAt, updatedAt, expiresAt int64
	var priorStates, stateHistory, collected, messages, metrics, interruption, metadata []byte

	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Channel, &state, &phase,
		&createdAt, &updatedAt, &expiresAt,
		&priorStates, &stateHistory, &collected, &messages, &metrics, &interruption, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	rec.Current = core.State(state)
	rec.Phase = core.Phase(phase)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	rec.ExpiresAt = time.UnixMilli(expiresAt).UTC()

	for _, f := range []struct {
		blob []byte
		dst  any
	}{
		{priorStates, &rec.PriorStates},
		{stateHistory, &rec.StateHistory},
		{collected, &rec.Collected},
		{messages, &rec.Messages},
		{metrics, &rec.Metrics},
		{interruption, &rec.Interruption},
		{metadata, &rec.Metadata},
	} {
		if len(f.blob) == 0 {
			continue
		}
		if err := json.Unmarshal(f.blob, f.dst); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", rec.ID, err)
		}
	}

	return rec.Session(), nil
}
