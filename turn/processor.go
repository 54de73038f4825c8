package turn

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/extract"
	"github.com/fixado/dialog/interrupt"
	"github.com/fixado/dialog/logging"
	"github.com/fixado/dialog/optimize"
	"github.com/fixado/dialog/session"
)

const (
	responseTransient     = "Je rencontre un petit souci technique, pouvez-vous renvoyer votre message dans un instant ?"
	responseClarify       = "Je n'ai pas bien compris, pouvez-vous reformuler ?"
	responseCorrection    = "Pas de souci. Que souhaitez-vous corriger ?"
	responseSubmitted     = "C'est noté ! Votre demande a été transmise, un artisan va vous contacter rapidement."
	responseProcessingErr = "Votre demande est enregistrée et en cours de traitement, vous recevrez une confirmation très vite."
)

// Options configures the turn processor.
type Options struct {
	// Optimizer advises question batching and suggestions. Defaults to a
	// fresh optimizer with standard thresholds.
	Optimizer *optimize.Optimizer
	// Hook receives the session once the request is confirmed. Defaults
	// to a no-op.
	Hook core.CompletionHook
	// Logger receives per-turn events.
	Logger logging.Logger
}

// Processor runs the per-turn orchestration loop. One Process call holds
// the session's per-key lock from load to persist, so two concurrent
// messages from the same owner are strictly serialized.
type Processor struct {
	store      *session.Store
	extractor  extract.Extractor
	interrupts *interrupt.Manager
	optimizer  *optimize.Optimizer
	hook       core.CompletionHook
	logger     logging.Logger
}

// New creates a processor over a store, an extractor and an interruption
// manager. A nil manager defaults to pattern-only detection.
func New(store *session.Store, extractor extract.Extractor, interrupts *interrupt.Manager, optFns ...func(o *Options)) *Processor {
	opts := Options{
		Optimizer: optimize.New(),
		Hook:      core.NoopCompletionHook{},
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if interrupts == nil {
		interrupts = interrupt.New(nil)
	}

	return &Processor{
		store:      store,
		extractor:  extractor,
		interrupts: interrupts,
		optimizer:  opts.Optimizer,
		hook:       opts.Hook,
		logger:     opts.Logger,
	}
}

// Process handles one inbound message for an owner and returns the outbound
// contract. It never returns an error for conditions the conversation can
// absorb; only a store that cannot produce a session at all fails the call.
func (p *Processor) Process(ctx context.Context, ownerID, channel, text string) (*core.TurnResult, error) {
	start := time.Now()

	sess, unlock, err := p.acquireSession(ctx, ownerID, channel)
	if err != nil {
		if errors.Is(err, core.ErrLockTimeout) {
			// One brief retry before asking the user to resend.
			if sess, unlock, err = p.acquireSession(ctx, ownerID, channel); err != nil {
				p.logger.Warn("turn lock timeout", "owner_id", ownerID)
				return &core.TurnResult{
					Response:  responseTransient,
					Collected: core.NewCollectedData(),
				}, nil
			}
		} else {
			return nil, err
		}
	}
	defer unlock()

	res := p.processLocked(ctx, sess, text)

	// Activity slides the deadline, so the session timeout acts as an
	// idle timeout rather than a hard cap on conversation length.
	sess.Touch(p.store.SessionTTL())
	sess.Metrics.ObserveResponseTime(time.Since(start))
	if err := p.store.Save(ctx, sess); err != nil {
		// Save already absorbs tier failures; anything surfacing here is
		// the store shutting down mid-turn.
		p.logger.Error("turn persist failed", "session_id", sess.ID, "error", err)
	}

	p.logger.Info("turn processed",
		"session_id", sess.ID,
		"owner_id", ownerID,
		"state", sess.State(),
		"completion_progress", res.CompletionProgress,
		"interruption", res.Interruption,
		"degraded", res.Degraded,
		"duration", time.Since(start),
	)
	return res, nil
}

// acquireSession resolves the owner's active session and takes its lock for
// the whole turn. Lookup and creation run under an owner-scoped lock so two
// simultaneous first messages share one session, and the state is checked
// again once the session lock is held: a turn that waited behind a
// completing turn (or the expiry sweep) must not proceed on a terminal
// session, it starts a fresh one instead.
func (p *Processor) acquireSession(ctx context.Context, ownerID, channel string) (*core.Session, func(), error) {
	ownerUnlock, err := p.store.LockOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	defer ownerUnlock()

	for {
		sess, err := p.loadOrCreate(ctx, ownerID, channel)
		if err != nil {
			return nil, nil, err
		}

		unlock, err := p.store.Lock(ctx, sess.ID)
		if err != nil {
			return nil, nil, err
		}

		fresh, err := p.store.Get(ctx, sess.ID)
		switch {
		case err == nil && !core.IsTerminal(fresh.State()):
			return fresh, unlock, nil
		case err == nil,
			errors.Is(err, core.ErrSessionNotFound),
			errors.Is(err, core.ErrSessionExpired):
			// Finished or expired while we waited for the lock; it now
			// behaves as absent and the lookup starts over.
			unlock()
		default:
			unlock()
			return nil, nil, err
		}
	}
}

// loadOrCreate finds the owner's active session or starts a fresh one.
// Expired sessions behave as absent and are replaced transparently.
func (p *Processor) loadOrCreate(ctx context.Context, ownerID, channel string) (*core.Session, error) {
	sess, err := p.store.GetActiveByOwner(ctx, ownerID)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrSessionExpired):
		return p.store.Create(ctx, ownerID, channel)
	default:
		return nil, err
	}
}

// processLocked runs detection, extraction, merge and state decision. The
// caller holds the session lock and persists afterwards.
func (p *Processor) processLocked(ctx context.Context, sess *core.Session, text string) *core.TurnResult {
	// An explicit resume takes priority over fresh detection, otherwise
	// "reprenons" right after a complaint would classify as in-flow text.
	if sess.Interruption.Active && interrupt.IsResumeRequest(text) {
		if outcome, ok := p.interrupts.Resume(sess); ok {
			sess.AppendMessage(core.NewInboundMessage(text))
			response := outcome.Response
			missing := unmetFields(sess.Collected)
			if question, tag := buildQuestion(missing, nil); question != "" {
				sess.Phase = phaseFor(missing[0])
				response += " " + question
				sess.AppendMessage(core.NewOutboundMessage(response, tag))
			} else {
				sess.AppendMessage(core.NewOutboundMessage(response, "resume"))
			}
			res := p.result(sess, response)
			res.RecoveryActions = outcome.Actions
			return res
		}
	}

	if det, err := p.interrupts.Detect(ctx, sess, text); err == nil && det != nil {
		return p.handleInterruption(ctx, sess, text, det)
	}

	switch sess.State() {
	case core.StateInitial:
		sess.TransitionTo(core.StateCollecting, "intake started")
	case core.StatePaused:
		sess.TransitionTo(core.StateCollecting, "resumed on inbound message")
	case core.StateProcessing:
		// The request is already handed off; nothing left to collect.
		sess.AppendMessage(core.NewInboundMessage(text))
		sess.AppendMessage(core.NewOutboundMessage(responseProcessingErr, "request_in_progress"))
		return p.result(sess, responseProcessingErr)
	}

	if sess.State() == core.StateConfirming {
		if res := p.handleConfirmation(ctx, sess, text); res != nil {
			return res
		}
		// Neither yes nor no: treat the message as a correction and let
		// extraction update the fields before summarizing again.
	}

	return p.handleCollection(ctx, sess, text)
}

func (p *Processor) handleInterruption(ctx context.Context, sess *core.Session, text string, det *interrupt.Detection) *core.TurnResult {
	sess.AppendMessage(core.NewInboundMessage(text))

	outcome, err := p.interrupts.Recover(ctx, sess, det)
	if err != nil {
		sess.RecordError(err.Error())
		sess.AppendMessage(core.NewOutboundMessage(responseClarify, "clarify"))
		return p.result(sess, responseClarify)
	}

	sess.AppendMessage(core.NewOutboundMessage(outcome.Response, "recovery_"+string(det.Type)))

	res := p.result(sess, outcome.Response)
	res.Interruption = det.Type
	res.RecoveryActions = outcome.Actions
	return res
}

// handleConfirmation resolves a yes/no while CONFIRMING. It returns nil
// when the reply is neither, so the caller can fall through to extraction.
func (p *Processor) handleConfirmation(ctx context.Context, sess *core.Session, text string) *core.TurnResult {
	confirmed, denied := readConfirmation(text)

	switch {
	case confirmed:
		sess.AppendMessage(core.NewInboundMessage(text))
		if !sess.TransitionTo(core.StateProcessing, "user confirmed summary") {
			sess.RecordError("confirmation transition rejected")
			sess.AppendMessage(core.NewOutboundMessage(responseClarify, "clarify"))
			return p.result(sess, responseClarify)
		}

		response := responseSubmitted
		if err := p.hook.OnComplete(ctx, sess); err != nil {
			// The request stays in PROCESSING for reconciliation; the
			// user still gets a definitive answer.
			p.logger.Error("completion hook failed", "session_id", sess.ID, "error", err)
			sess.RecordError(err.Error())
			response = responseProcessingErr
		} else {
			sess.TransitionTo(core.StateCompleted, "request submitted")
		}
		sess.AppendMessage(core.NewOutboundMessage(response, "request_submitted"))
		return p.result(sess, response)

	case denied:
		sess.AppendMessage(core.NewInboundMessage(text))
		sess.TransitionTo(core.StateCollecting, "user rejected summary")
		sess.AppendMessage(core.NewOutboundMessage(responseCorrection, "ask_correction"))
		return p.result(sess, responseCorrection)

	default:
		return nil
	}
}

func (p *Processor) handleCollection(ctx context.Context, sess *core.Session, text string) *core.TurnResult {
	res, err := p.extractor.Extract(ctx, extract.Request{
		Text:    text,
		History: sess.RecentMessages(),
		Current: sess.Collected,
	})
	degraded := errors.Is(err, extract.ErrDegraded)
	if err != nil && !degraded {
		sess.RecordError(err.Error())
		sess.AppendMessage(core.NewInboundMessage(text))
		sess.AppendMessage(core.NewOutboundMessage(responseClarify, "clarify"))
		out := p.result(sess, responseClarify)
		return out
	}

	var issues []string
	extracted := make(map[core.Field]string)
	var topConfidence float64
	for f, cand := range res.Fields {
		if reason, ok := validateField(f, cand.Value); !ok {
			issues = append(issues, reason)
			continue
		}
		sess.MergeField(f, cand.Value, cand.Confidence)
		extracted[f] = cand.Value
		if cand.Confidence > topConfidence {
			topConfidence = cand.Confidence
		}
	}
	sort.Strings(issues)

	inbound := core.NewInboundMessage(text)
	inbound.ExtractedFields = extracted
	inbound.Confidence = topConfidence
	sess.AppendMessage(inbound)

	response, actionTag := p.decideNext(sess)

	sess.AppendMessage(core.NewOutboundMessage(response, actionTag))

	out := p.result(sess, response)
	out.ValidationIssues = issues
	out.Degraded = degraded
	return out
}

// decideNext picks the session's next state and composes the outbound
// message for it.
func (p *Processor) decideNext(sess *core.Session) (response, actionTag string) {
	if sess.State() == core.StateConfirming {
		// A correction while confirming: summarize the updated data.
		return buildSummary(sess.Collected), "confirm_summary"
	}

	if sess.Collected.IsComplete() {
		if sess.State() == core.StateCollecting {
			sess.TransitionTo(core.StateValidating, "required fields complete")
		}
		if issues := validateCollected(sess.Collected); len(issues) > 0 {
			sess.TransitionTo(core.StateCollecting, "collected data failed validation")
			return responseClarify, "clarify"
		}
		sess.TransitionTo(core.StateConfirming, "awaiting confirmation")
		return buildSummary(sess.Collected), "confirm_summary"
	}

	missing := unmetFields(sess.Collected)
	question, tag := buildQuestion(missing, p.optimizer.Suggest(sess))
	if len(missing) > 0 {
		sess.Phase = phaseFor(missing[0])
	}
	if sess.Metrics.OutboundCount == 0 {
		question = greeting + " " + question
	}
	return question, tag
}

// unmetFields lists every field not yet collected, in priority order.
func unmetFields(c *core.CollectedData) []core.Field {
	var out []core.Field
	for _, f := range core.FieldPriority {
		if !c.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// result assembles the outbound contract from the session's current view.
func (p *Processor) result(sess *core.Session, response string) *core.TurnResult {
	return &core.TurnResult{
		SessionID:          sess.ID,
		Response:           response,
		State:              sess.State(),
		Collected:          sess.Collected.Clone(),
		MissingFields:      sess.Collected.MissingRequired(),
		CompletionProgress: sess.Collected.CompletionProgress(),
	}
}
