package optimize

import (
	"math"
	"strings"

	"github.com/fixado/dialog/core"
)

// ConversationPattern summarizes how an owner converses, every signal
// normalized to [0,1].
type ConversationPattern struct {
	// AvgInboundLength captures how verbose inbound messages are; 1.0 is
	// reached around 120 runes per message.
	AvgInboundLength float64 `json:"avg_inbound_length"`
	// ResponseCompleteness is how many fields each inbound message yields.
	ResponseCompleteness float64 `json:"response_completeness"`
	// AnswerRate is the fraction of asked questions the next inbound
	// message actually answered.
	AnswerRate float64 `json:"answer_rate"`
	// TopicConsistency degrades with topic changes and new requests.
	TopicConsistency float64 `json:"topic_consistency"`
	// InterruptionFrequency is interruptions per inbound message.
	InterruptionFrequency float64 `json:"interruption_frequency"`
}

// verboseLength is the inbound message length considered fully detailed.
const verboseLength = 120

// ComputePattern derives the conversation pattern from a session's bounded
// message history and interruption log. It only reads the session.
func ComputePattern(session *core.Session) ConversationPattern {
	messages := session.RecentMessages()

	var inbound int
	var totalRunes int
	var asked, answered int
	var yielding int

	prevWasQuestion := false
	for _, msg := range messages {
		switch msg.Direction {
		case core.DirectionInbound:
			inbound++
			totalRunes += len([]rune(msg.Content))
			if len(msg.ExtractedFields) > 0 {
				yielding++
				if prevWasQuestion {
					answered++
				}
			}
			prevWasQuestion = false
		case core.DirectionOutbound:
			if strings.HasPrefix(msg.ActionTag, "ask_") {
				asked++
				prevWasQuestion = true
			} else {
				prevWasQuestion = false
			}
		}
	}

	p := ConversationPattern{
		// Neutral priors until there is evidence either way.
		AnswerRate:       0.5,
		TopicConsistency: 1.0,
	}

	if inbound > 0 {
		p.AvgInboundLength = clamp01(float64(totalRunes) / float64(inbound) / verboseLength)
		p.ResponseCompleteness = clamp01(float64(yielding) / float64(inbound))
		p.InterruptionFrequency = clamp01(float64(session.Interruption.Count) / float64(inbound))
	}
	if asked > 0 {
		p.AnswerRate = clamp01(float64(answered) / float64(asked))
	}
	for _, rec := range session.Interruption.History {
		if rec.Type == core.InterruptionTopicChange || rec.Type == core.InterruptionNewRequest {
			p.TopicConsistency -= 0.25
		}
	}
	p.TopicConsistency = clamp01(p.TopicConsistency)

	return p
}

// distance is the Euclidean distance between two patterns in signal space.
func (p ConversationPattern) distance(other ConversationPattern) float64 {
	dl := p.AvgInboundLength - other.AvgInboundLength
	dc := p.ResponseCompleteness - other.ResponseCompleteness
	da := p.AnswerRate - other.AnswerRate
	dt := p.TopicConsistency - other.TopicConsistency
	di := p.InterruptionFrequency - other.InterruptionFrequency
	return math.Sqrt(dl*dl + dc*dc + da*da + dt*dt + di*di)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
