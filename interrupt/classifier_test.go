package interrupt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixado/dialog/core"
)

func TestPatternClassifier_DetectsCancellation(t *testing.T) {
	c := NewPatternClassifier()

	det, err := c.Classify(context.Background(), "Non finalement annule tout", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionCancellation, det.Type)
	assert.GreaterOrEqual(t, det.Confidence, 0.9)
	assert.Equal(t, "annule tout", det.Phrase)
}

func TestPatternClassifier_DetectsEscalation(t *testing.T) {
	c := NewPatternClassifier()

	det, err := c.Classify(context.Background(), "Je veux parler à un responsable", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionEscalation, det.Type)
	assert.InDelta(t, 1.0, det.Confidence, 0.01)
}

func TestPatternClassifier_DetectsClarification(t *testing.T) {
	c := NewPatternClassifier()

	det, err := c.Classify(context.Background(), "Pourquoi vous demandez mon adresse ?", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionClarification, det.Type)
}

func TestPatternClassifier_InFlowTextIsNil(t *testing.T) {
	c := NewPatternClassifier()

	det, err := c.Classify(context.Background(), "J'ai une fuite d'eau sous l'évier de la cuisine", nil)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestPatternClassifier_FoldsTypographicApostrophe(t *testing.T) {
	c := NewPatternClassifier()

	det, err := c.Classify(context.Background(), "J’abandonne, c'est trop compliqué", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionCancellation, det.Type)
}

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestModelClassifier_ParsesReply(t *testing.T) {
	completer := &fakeCompleter{reply: `{"type": "topic_change", "confidence": 0.7}`}
	c := NewModelClassifier(completer)

	det, err := c.Classify(context.Background(), "hmm en vrai je sais plus", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionTopicChange, det.Type)
	assert.InDelta(t, 0.7, det.Confidence, 0.001)
}

func TestModelClassifier_ToleratesCodeFence(t *testing.T) {
	completer := &fakeCompleter{reply: "```json\n{\"type\": \"complaint\", \"confidence\": 2.5}\n```"}
	c := NewModelClassifier(completer)

	det, err := c.Classify(context.Background(), "bof", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionComplaint, det.Type)
	assert.Equal(t, 1.0, det.Confidence)
}

func TestModelClassifier_NoneIsNil(t *testing.T) {
	completer := &fakeCompleter{reply: `{"type": "none"}`}
	c := NewModelClassifier(completer)

	det, err := c.Classify(context.Background(), "du carrelage dans la salle de bain", nil)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestModelClassifier_RejectsUnknownType(t *testing.T) {
	completer := &fakeCompleter{reply: `{"type": "tantrum", "confidence": 0.9}`}
	c := NewModelClassifier(completer)

	_, err := c.Classify(context.Background(), "grr", nil)
	require.Error(t, err)
}

func TestHybridClassifier_PatternWins(t *testing.T) {
	model := &MockClassifier{Detection: &Detection{Type: core.InterruptionComplaint, Confidence: 0.9}}
	c := NewHybridClassifier(model)

	det, err := c.Classify(context.Background(), "annule tout", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionCancellation, det.Type)
	assert.Zero(t, model.Calls, "model must not be consulted on a pattern hit")
}

func TestHybridClassifier_FallsBackToModel(t *testing.T) {
	model := &MockClassifier{Detection: &Detection{Type: core.InterruptionTopicChange, Confidence: 0.65}}
	c := NewHybridClassifier(model)

	det, err := c.Classify(context.Background(), "hmm je sais plus trop", nil)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, core.InterruptionTopicChange, det.Type)
	assert.Equal(t, 1, model.Calls)
}

func TestHybridClassifier_ModelErrorIsSwallowed(t *testing.T) {
	model := &MockClassifier{Err: errors.New("provider down")}
	c := NewHybridClassifier(model)

	det, err := c.Classify(context.Background(), "hmm je sais plus trop", nil)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestIsResumeRequest(t *testing.T) {
	assert.True(t, IsResumeRequest("Bon, reprenons"))
	assert.True(t, IsResumeRequest("on continue !"))
	assert.False(t, IsResumeRequest("j'ai un problème de chauffage"))
}
