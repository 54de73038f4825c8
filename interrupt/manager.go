package interrupt

import (
	"context"
	"fmt"
	"time"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/internal/util"
	"github.com/fixado/dialog/logging"
)

// Options configures the interruption manager.
type Options struct {
	// Audit receives durable records for escalations and complaints. Nil
	// disables auditing.
	Audit core.AuditSink
	// Logger receives detection and recovery events.
	Logger logging.Logger
}

// Outcome is the result of applying a recovery strategy to a session. The
// turn processor folds it into the turn result.
type Outcome struct {
	Record   core.InterruptionRecord
	Actions  []string
	Response string
	// Cleared reports whether the collected data was wiped.
	Cleared bool
}

// Manager detects interruptions and applies the per-type recovery strategy.
// It mutates sessions directly and therefore must run under the store's
// per-key lock, like the rest of the turn pipeline.
type Manager struct {
	classifier Classifier
	audit      core.AuditSink
	logger     logging.Logger
}

// New creates a manager around a classifier. A nil classifier defaults to
// the pattern-only hybrid.
func New(classifier Classifier, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if classifier == nil {
		classifier = NewHybridClassifier(nil)
	}

	return &Manager{
		classifier: classifier,
		audit:      opts.Audit,
		logger:     opts.Logger,
	}
}

// Detect classifies an inbound message against the session context. A nil
// detection means the message is in-flow and normal processing continues.
func (m *Manager) Detect(ctx context.Context, session *core.Session, text string) (*Detection, error) {
	return m.classifier.Classify(ctx, text, session)
}

// Recover applies the strategy registered for the detected type: records
// the interruption, snapshots the exchange when the strategy keeps the
// collected data, executes the state change and returns the user-facing
// reply.
func (m *Manager) Recover(ctx context.Context, session *core.Session, det *Detection) (*Outcome, error) {
	strategy := StrategyFor(det.Type)
	progress := session.Collected.CompletionProgress()
	severity := DeriveSeverity(det.Type, det.Confidence, progress)

	rec := core.InterruptionRecord{
		Type:       det.Type,
		Confidence: det.Confidence,
		Severity:   severity,
		Phrase:     det.Phrase,
		DetectedAt: time.Now().UTC(),
	}

	// Snapshot before anything mutates, so a resume lands exactly where
	// the user left off. Strategies that wipe the data reset the flow
	// instead; there is nothing to come back to.
	if !strategy.ClearData && det.Type != core.InterruptionBacktrack {
		session.Interruption.PushRecovery(session.State(), session.Collected)
	}
	session.Interruption.Record(rec)

	if strategy.ClearData {
		session.Collected.Clear()
		session.Phase = core.PhaseGreeting
		session.Interruption.Resolve()
	}

	switch {
	case det.Type == core.InterruptionBacktrack:
		session.Rollback("user asked to go back")
		session.Interruption.Resolve()
	case strategy.Target != "" && strategy.Target != session.State():
		if !session.TransitionTo(strategy.Target, fmt.Sprintf("interruption: %s", det.Type)) {
			// Cancelling mid-processing cannot rewind the flow, so it
			// terminates instead.
			if det.Type == core.InterruptionCancellation && session.TransitionTo(core.StateCancelled, "cancelled during processing") {
				break
			}
			m.logger.Warn("recovery transition rejected",
				"session_id", session.ID,
				"from", session.State(),
				"target", strategy.Target,
				"interruption_type", det.Type,
			)
		}
	}

	if det.Type == core.InterruptionEscalation {
		session.Metrics.Escalations++
	}

	if strategy.Audit && m.audit != nil {
		audit := core.AuditRecord{
			ID:        core.NewID(),
			SessionID: session.ID,
			OwnerID:   session.OwnerID,
			Kind:      string(det.Type),
			Detail:    fmt.Sprintf("severity=%s confidence=%.2f phrase=%q", severity, det.Confidence, det.Phrase),
			CreatedAt: rec.DetectedAt,
		}
		if err := m.audit.RecordAudit(ctx, audit); err != nil {
			m.logger.Error("audit record failed",
				"session_id", session.ID,
				"kind", audit.Kind,
				"error", err,
			)
		}
	}

	response, err := util.RenderTemplate(strategy.Response, map[string]any{
		"Progress": int(progress),
	})
	if err != nil {
		return nil, fmt.Errorf("render recovery response: %w", err)
	}

	m.logger.Warn("interruption recovered",
		"session_id", session.ID,
		"interruption_type", det.Type,
		"confidence", det.Confidence,
		"severity", severity.String(),
		"actions", strategy.Actions,
	)

	return &Outcome{
		Record:   rec,
		Actions:  strategy.Actions,
		Response: response,
		Cleared:  strategy.ClearData,
	}, nil
}

// Resume restores the exchange saved by the last snapshotting recovery:
// collected data comes back verbatim and the session transitions to the
// saved state when the table allows it. The second return is false when
// nothing was saved.
func (m *Manager) Resume(session *core.Session) (*Outcome, bool) {
	state, saved, ok := session.Interruption.PopRecovery()
	if !ok {
		return nil, false
	}

	if saved != nil {
		session.Collected = saved
	}
	if state != session.State() {
		session.TransitionTo(state, "resume after interruption")
	}

	progress := session.Collected.CompletionProgress()
	response, err := util.RenderTemplate(
		"Reprenons votre demande là où nous en étions ({{.Progress}}% des informations sont déjà renseignées).",
		map[string]any{"Progress": int(progress)},
	)
	if err != nil {
		response = "Reprenons votre demande là où nous en étions."
	}

	m.logger.Info("session resumed",
		"session_id", session.ID,
		"state", session.State(),
		"completion_progress", progress,
	)

	return &Outcome{
		Actions:  []string{"restore_saved_context"},
		Response: response,
	}, true
}
