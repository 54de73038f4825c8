package interrupt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fixado/dialog/core"
)

// Detection is a positive classification of an inbound message as an
// interruption of the expected exchange.
type Detection struct {
	Type       core.InterruptionType
	Confidence float64
	// Phrase is the strongest matched phrase, empty for model detections.
	Phrase string
}

// Classifier decides whether a message interrupts the collection flow.
// A nil Detection with a nil error means the message is in-flow.
type Classifier interface {
	Classify(ctx context.Context, text string, session *core.Session) (*Detection, error)
}

// PatternClassifier is the deterministic strategy: weighted phrase tables
// per interruption type, evaluated in the fixed detection order so that a
// cancellation outranks a topic change at equal score.
type PatternClassifier struct{}

var _ Classifier = (*PatternClassifier)(nil)

// NewPatternClassifier creates the phrase-table classifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Classify implements Classifier.
func (c *PatternClassifier) Classify(_ context.Context, text string, _ *core.Session) (*Detection, error) {
	text = normalize(text)
	if text == "" {
		return nil, nil
	}

	var best *Detection
	for _, typ := range core.InterruptionTypes {
		table := patternTables[typ]
		score, phrase := scoreType(text, table)
		if score < table.threshold {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &Detection{Type: typ, Confidence: score, Phrase: phrase}
		}
	}
	return best, nil
}

// Completer is the minimal model-provider surface the fallback classifier
// needs. Both provider adapters in extract/ satisfy it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ModelClassifier asks an external model whether the message interrupts the
// flow. It is meant to run behind the pattern classifier, catching phrasings
// the tables do not cover.
type ModelClassifier struct {
	completer Completer
}

var _ Classifier = (*ModelClassifier)(nil)

// NewModelClassifier creates a classifier backed by a model provider.
func NewModelClassifier(completer Completer) *ModelClassifier {
	return &ModelClassifier{completer: completer}
}

const classifySystemPrompt = `Tu analyses les messages d'un assistant de mise en relation avec des artisans.
Détermine si le message du client interrompt la collecte d'informations en cours.
Les types possibles sont: cancellation, topic_change, modification, clarification, backtrack, new_request, escalation, complaint.
Réponds uniquement en JSON: {"type": "<type>", "confidence": <0..1>} ou {"type": "none"} si le message suit le fil de la conversation.`

// Classify implements Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, text string, session *core.Session) (*Detection, error) {
	var sb strings.Builder
	if session != nil {
		fmt.Fprintf(&sb, "État de la conversation: %s\n", session.State())
		for _, msg := range session.RecentMessages() {
			fmt.Fprintf(&sb, "[%s] %s\n", msg.Direction, msg.Content)
		}
	}
	fmt.Fprintf(&sb, "Message du client: %q", text)

	reply, err := c.completer.Complete(ctx, classifySystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("classify interruption: %w", err)
	}
	return parseDetection(reply)
}

// parseDetection decodes the model reply, tolerating markdown code fences.
func parseDetection(reply string) (*Detection, error) {
	reply = strings.TrimSpace(reply)
	if after, ok := strings.CutPrefix(reply, "```json"); ok {
		reply = after
	} else if after, ok := strings.CutPrefix(reply, "```"); ok {
		reply = after
	}
	reply = strings.TrimSuffix(strings.TrimSpace(reply), "```")

	var raw struct {
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &raw); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	if raw.Type == "" || raw.Type == "none" {
		return nil, nil
	}

	typ := core.InterruptionType(raw.Type)
	known := false
	for _, t := range core.InterruptionTypes {
		if t == typ {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("parse classification: unknown type %q", raw.Type)
	}

	conf := raw.Confidence
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}
	return &Detection{Type: typ, Confidence: conf}, nil
}

// HybridClassifier tries the deterministic patterns first and consults the
// model only on a miss. A nil model degrades it to patterns only, and model
// errors are swallowed: an unreachable provider must never block the turn.
type HybridClassifier struct {
	pattern *PatternClassifier
	model   Classifier
}

var _ Classifier = (*HybridClassifier)(nil)

// NewHybridClassifier composes the pattern classifier with an optional
// model-backed fallback.
func NewHybridClassifier(model Classifier) *HybridClassifier {
	return &HybridClassifier{pattern: NewPatternClassifier(), model: model}
}

// Classify implements Classifier.
func (c *HybridClassifier) Classify(ctx context.Context, text string, session *core.Session) (*Detection, error) {
	det, err := c.pattern.Classify(ctx, text, session)
	if err != nil || det != nil {
		return det, err
	}
	if c.model == nil {
		return nil, nil
	}
	det, err = c.model.Classify(ctx, text, session)
	if err != nil {
		return nil, nil
	}
	return det, nil
}

// MockClassifier returns scripted detections, for tests.
type MockClassifier struct {
	Detection *Detection
	Err       error
	Calls     int
}

var _ Classifier = (*MockClassifier)(nil)

// Classify implements Classifier.
func (m *MockClassifier) Classify(context.Context, string, *core.Session) (*Detection, error) {
	m.Calls++
	return m.Detection, m.Err
}
