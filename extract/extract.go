package extract

import (
	"context"
	"fmt"

	"github.com/fixado/dialog/core"
)

// Request captures the normalized extraction input for one turn.
type Request struct {
	// Text is the raw inbound message.
	Text string `json:"text"`
	// History provides recent conversation context, oldest first.
	History []core.ConversationMessage `json:"history,omitempty"`
	// Current holds the fields already collected, so providers can focus on
	// what is still missing.
	Current *core.CollectedData `json:"current,omitempty"`
}

// Candidate is one extracted field value with its confidence in [0,1].
type Candidate struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of one extraction call.
type Result struct {
	Fields            map[core.Field]Candidate `json:"fields"`
	Missing           []core.Field             `json:"missing,omitempty"`
	SuggestedResponse string                   `json:"suggested_response,omitempty"`
}

// Info contains metadata about an extractor implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "anthropic", "openai", "keyword", etc.
}

// Extractor is the minimal interface the turn processor needs to pull
// structured fields out of free text. Implementations must honor ctx
// cancellation; callers must tolerate failure.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)

	// Info returns information about the extractor implementation.
	Info() Info
}

// MockExtractor is a lightweight in-memory Extractor useful for tests and
// examples. Register canned results per input text; unknown inputs return an
// empty result or a configured error.
type MockExtractor struct {
	info    Info
	results map[string]*Result
	err     error
	calls   int
}

// NewMockExtractor constructs a MockExtractor.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		info:    Info{Name: "mock", Provider: "mock"},
		results: make(map[string]*Result),
	}
}

// AddResult registers a deterministic canned result for an input text.
func (m *MockExtractor) AddResult(text string, res *Result) { m.results[text] = res }

// FailWith makes every Extract call return err.
func (m *MockExtractor) FailWith(err error) { m.err = err }

// Calls reports how many times Extract was invoked.
func (m *MockExtractor) Calls() int { return m.calls }

// Extract implements Extractor.
func (m *MockExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if res, ok := m.results[req.Text]; ok {
		return res, nil
	}
	return &Result{Fields: map[core.Field]Candidate{}}, nil
}

// Info implements Extractor.
func (m *MockExtractor) Info() Info { return m.info }

// wrapProviderErr annotates provider failures with the extractor identity.
func wrapProviderErr(info Info, err error) error {
	return fmt.Errorf("%s extraction: %w", info.Provider, err)
}
