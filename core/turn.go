package core

// TurnResult is the sole contract handed back to the transport layer after
// one processed turn. Every processing path, including degraded and failed
// ones, terminates in a well-formed TurnResult.
type TurnResult struct {
	SessionID          string           `json:"session_id"`
	Response           string           `json:"response"`
	State              State            `json:"state"`
	Collected          *CollectedData   `json:"collected"`
	MissingFields      []Field          `json:"missing_fields,omitempty"`
	CompletionProgress float64          `json:"completion_progress"`
	ValidationIssues   []string         `json:"validation_issues,omitempty"`
	Interruption       InterruptionType `json:"interruption,omitempty"`
	RecoveryActions    []string         `json:"recovery_actions,omitempty"`
	Degraded           bool             `json:"degraded,omitempty"`
}
