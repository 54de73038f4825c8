package extract

import (
	"context"
	"errors"
	"time"

	"github.com/fixado/dialog/logging"
)

// ChainOptions configures retry and degradation behavior of a Chain.
type ChainOptions struct {
	// Timeout bounds each individual provider call.
	Timeout time.Duration
	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int
	// Backoff is the initial delay between attempts; it doubles per retry.
	Backoff time.Duration
	// Logger receives degradation warnings.
	Logger logging.Logger
}

// Chain decorates a provider-backed Extractor with bounded timeouts, retry
// with exponential backoff, and degradation to the deterministic keyword
// extractor when every attempt fails. A Chain never surfaces a provider
// error alone: a failed provider yields the fallback's result paired with
// ErrDegraded so the caller can record the degradation without failing.
type Chain struct {
	primary  Extractor
	fallback Extractor
	opts     ChainOptions
}

var _ Extractor = (*Chain)(nil)

// NewChain builds a Chain around primary. A nil primary degrades every call
// directly to the keyword extractor.
func NewChain(primary Extractor, optFns ...func(o *ChainOptions)) *Chain {
	opts := ChainOptions{
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		Backoff:    250 * time.Millisecond,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Chain{primary: primary, fallback: NewKeywordExtractor(), opts: opts}
}

// ErrDegraded marks a result produced by the fallback extractor. It is
// returned alongside a valid non-nil result so callers can record the
// degradation without failing the turn.
var ErrDegraded = errors.New("extraction degraded to keyword fallback")

// Extract implements Extractor. When the primary provider fails every
// attempt, the keyword fallback result is returned together with
// ErrDegraded; callers should treat that pairing as success.
func (c *Chain) Extract(ctx context.Context, req Request) (*Result, error) {
	if c.primary == nil {
		res, err := c.fallback.Extract(ctx, req)
		if err != nil {
			return nil, err
		}
		return res, ErrDegraded
	}

	var lastErr error
	backoff := c.opts.Backoff
retry:
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break retry
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		res, err := c.primary.Extract(callCtx, req)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = wrapProviderErr(c.primary.Info(), err)
		c.opts.Logger.Warn("extraction attempt failed", "attempt", attempt+1, "error", lastErr)
	}

	c.opts.Logger.Warn("extraction degraded to keyword fallback", "error", lastErr)
	res, err := c.fallback.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, ErrDegraded
}

// Info implements Extractor.
func (c *Chain) Info() Info {
	if c.primary == nil {
		return c.fallback.Info()
	}
	return c.primary.Info()
}
