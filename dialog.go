// Package dialog provides a high-level façade over the conversational
// intake engine (sessions, extraction, interruption handling & turn
// orchestration). Most applications interact with this package by:
//  1. Creating an Engine via New() (optionally overriding default in-memory services)
//  2. Calling Start() to launch the background session sweep
//  3. Feeding customer messages through ProcessMessage()
//
// The façade delegates per-turn orchestration to turn.Processor while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a sqlite
// durable store, a redis cache, a model-backed extractor and a structured
// logger.
package dialog

import (
	"context"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/extract"
	"github.com/fixado/dialog/interrupt"
	"github.com/fixado/dialog/logging"
	"github.com/fixado/dialog/optimize"
	"github.com/fixado/dialog/session"
	"github.com/fixado/dialog/turn"
)

// Options configures the Engine instance.
type Options struct {
	// Durable is the persistence tier. Defaults to an in-memory store.
	Durable core.DurableStore
	// Cache is the optional best-effort tier; nil disables it.
	Cache core.Cache
	// StoreOptions tune the tiered store (TTL, working set, sweep).
	StoreOptions []func(o *session.Options)

	// Extractor turns free text into structured fields. Defaults to the
	// deterministic keyword extractor wrapped in a degradation chain.
	Extractor extract.Extractor
	// Interrupts handles off-script messages. Defaults to pattern-only
	// detection with no audit sink.
	Interrupts *interrupt.Manager
	// Optimizer advises question batching and suggestions.
	Optimizer *optimize.Optimizer
	// Hook receives confirmed requests for downstream submission.
	Hook core.CompletionHook

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Engine is the high-level façade aggregating the session store and the
// turn processor.
type Engine struct {
	store     *session.Store
	processor *turn.Processor
}

// New creates a new Engine with optional overrides. Any unset service is
// initialized with an in-memory or deterministic implementation.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Durable:   session.NewMemoryDurable(),
		Extractor: extract.NewChain(nil),
		Optimizer: optimize.New(),
		Hook:      core.NoopCompletionHook{},
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	storeOpts := append([]func(o *session.Options){func(o *session.Options) {
		o.Cache = opts.Cache
		o.Logger = opts.Logger
	}}, opts.StoreOptions...)

	store := session.New(opts.Durable, storeOpts...)

	processor := turn.New(store, opts.Extractor, opts.Interrupts, func(o *turn.Options) {
		o.Optimizer = opts.Optimizer
		o.Hook = opts.Hook
		o.Logger = opts.Logger
	})

	return &Engine{store: store, processor: processor}
}

// Start launches the background expiry sweep.
func (e *Engine) Start() { e.store.Start() }

// Shutdown stops the sweep and flushes in-flight sessions to the durable
// tier.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.store.Shutdown(ctx)
}

// Store exposes the underlying session store for admin surfaces.
func (e *Engine) Store() *session.Store { return e.store }

// ProcessMessage runs one conversational turn for the given owner. It
// resolves or creates the owner's active session, applies the message and
// returns the reply to send back on the channel.
func (e *Engine) ProcessMessage(ctx context.Context, ownerID, channel, text string) (*core.TurnResult, error) {
	return e.processor.Process(ctx, ownerID, channel, text)
}
