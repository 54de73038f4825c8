package core

import "time"

// SessionMetrics aggregates per-session counters and timing statistics.
type SessionMetrics struct {
	TotalMessages   int `json:"total_messages"`
	InboundCount    int `json:"inbound_count"`
	OutboundCount   int `json:"outbound_count"`
	StateChanges    int `json:"state_changes"`
	Rollbacks       int `json:"rollbacks"`
	Errors          int `json:"errors"`
	Escalations     int `json:"escalations"`
	ResponseSamples int `json:"response_samples"`

	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
}

// ObserveResponseTime folds one turn latency into the running average.
func (m *SessionMetrics) ObserveResponseTime(d time.Duration) {
	ms := float64(d.Milliseconds())
	m.ResponseSamples++
	m.AverageResponseTimeMs += (ms - m.AverageResponseTimeMs) / float64(m.ResponseSamples)
}

// CountMessage updates message counters for one appended message.
func (m *SessionMetrics) CountMessage(dir Direction) {
	m.TotalMessages++
	switch dir {
	case DirectionInbound:
		m.InboundCount++
	case DirectionOutbound:
		m.OutboundCount++
	}
}

// AutomationScore is a derived health indicator in [0,100]: the fraction of
// turns handled without error, penalized for rollbacks and escalations.
func (m *SessionMetrics) AutomationScore() float64 {
	if m.TotalMessages == 0 {
		return 0
	}
	success := float64(m.TotalMessages-m.Errors) / float64(m.TotalMessages) * 100
	score := success - 5*float64(m.Rollbacks) - 20*float64(m.Escalations)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
