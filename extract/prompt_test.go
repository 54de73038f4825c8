package extract

import (
	"testing"

	"github.com/fixado/dialog/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult_PlainJSON(t *testing.T) {
	res, err := ParseResult(`{"fields":{"serviceType":{"value":"plomberie","confidence":0.95}},"missing":["location"],"suggested_response":"Où se situe le problème ?"}`)
	require.NoError(t, err)
	assert.Equal(t, "plomberie", res.Fields[core.FieldServiceType].Value)
	assert.Equal(t, []core.Field{core.FieldLocation}, res.Missing)
	assert.Equal(t, "Où se situe le problème ?", res.SuggestedResponse)
}

func TestParseResult_CodeFencedJSON(t *testing.T) {
	res, err := ParseResult("Voici le résultat :\n```json\n{\"fields\":{\"urgency\":{\"value\":\"urgent\",\"confidence\":1.4}}}\n```")
	require.NoError(t, err)
	// Confidence clamped into [0,1].
	assert.InDelta(t, 1.0, res.Fields[core.FieldUrgency].Confidence, 1e-9)
}

func TestParseResult_Garbage(t *testing.T) {
	_, err := ParseResult("désolé, je ne peux pas répondre")
	assert.Error(t, err)
}

func TestUserPrompt_IncludesContext(t *testing.T) {
	current := core.NewCollectedData()
	current.Merge(core.FieldServiceType, "plomberie", 0.9)
	prompt := UserPrompt(Request{
		Text:    "c'est au 3e étage",
		History: []core.ConversationMessage{core.NewOutboundMessage("Quelle est l'adresse ?", "ask_location")},
		Current: current,
	})
	assert.Contains(t, prompt, "serviceType: plomberie")
	assert.Contains(t, prompt, "assistant: Quelle est l'adresse ?")
	assert.Contains(t, prompt, "c'est au 3e étage")
}
