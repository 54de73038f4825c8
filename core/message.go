package core

import "time"

// Direction distinguishes who authored a conversation message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionSystem   Direction = "system"
)

// ConversationMessage is one turn record in a session's bounded history.
// After being appended to a session it must be treated as immutable.
type ConversationMessage struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	Direction       Direction         `json:"direction"`
	Content         string            `json:"content"`
	ActionTag       string            `json:"action_tag,omitempty"`
	Confidence      float64           `json:"confidence,omitempty"`
	ExtractedFields map[Field]string  `json:"extracted_fields,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// NewInboundMessage creates a user-authored message record.
func NewInboundMessage(content string) ConversationMessage {
	return ConversationMessage{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Direction: DirectionInbound,
		Content:   content,
	}
}

// NewOutboundMessage creates an engine-authored message record tagged with
// the action that produced it.
func NewOutboundMessage(content, actionTag string) ConversationMessage {
	return ConversationMessage{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Direction: DirectionOutbound,
		Content:   content,
		ActionTag: actionTag,
	}
}

// NewSystemMessage creates a control/system message record.
func NewSystemMessage(content string) ConversationMessage {
	return ConversationMessage{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Direction: DirectionSystem,
		Content:   content,
	}
}
