package core

import "time"

// Field names one piece of information gathered over the conversation.
type Field string

const (
	FieldServiceType Field = "serviceType"
	FieldLocation    Field = "location"
	FieldDescription Field = "description"
	FieldTiming      Field = "timing"
	FieldUrgency     Field = "urgency"
	FieldBudget      Field = "budget"
	FieldContact     Field = "contact"
	FieldAccessNotes Field = "accessNotes"
	FieldMaterials   Field = "materials"
)

// RequiredFields is the fixed set a session must collect before it can leave
// COLLECTING.
var RequiredFields = []Field{FieldServiceType, FieldLocation, FieldDescription}

// OptionalFields are collected opportunistically; they raise completion
// progress but never block it.
var OptionalFields = []Field{FieldTiming, FieldUrgency, FieldBudget, FieldContact, FieldAccessNotes, FieldMaterials}

// FieldPriority is the fixed order in which unmet fields are asked for.
var FieldPriority = []Field{
	FieldServiceType,
	FieldLocation,
	FieldDescription,
	FieldUrgency,
	FieldContact,
	FieldTiming,
	FieldBudget,
	FieldAccessNotes,
	FieldMaterials,
}

// IsRequired reports whether f belongs to the required set.
func IsRequired(f Field) bool {
	for _, r := range RequiredFields {
		if r == f {
			return true
		}
	}
	return false
}

// FieldValue is one collected value with its extraction confidence in [0,1].
type FieldValue struct {
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CollectedData maps intake fields to their collected values. A nil entry
// (or absent key) means the field has not been collected yet.
type CollectedData struct {
	Fields map[Field]*FieldValue `json:"fields"`
}

// NewCollectedData returns an empty field set.
func NewCollectedData() *CollectedData {
	return &CollectedData{Fields: make(map[Field]*FieldValue)}
}

// Get returns the value for a field, or nil when not collected.
func (c *CollectedData) Get(f Field) *FieldValue {
	if c == nil || c.Fields == nil {
		return nil
	}
	return c.Fields[f]
}

// Has reports whether a field holds a non-empty value.
func (c *CollectedData) Has(f Field) bool {
	v := c.Get(f)
	return v != nil && v.Value != ""
}

// Merge records a value for a field. An existing value is only replaced when
// the new value differs or carries at least the existing confidence, so a
// low-confidence re-extraction of the same text never degrades what is
// already known.
func (c *CollectedData) Merge(f Field, value string, confidence float64) {
	if value == "" {
		return
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	if c.Fields == nil {
		c.Fields = make(map[Field]*FieldValue)
	}
	if cur := c.Fields[f]; cur != nil && cur.Value == value && confidence < cur.Confidence {
		return
	}
	c.Fields[f] = &FieldValue{Value: value, Confidence: confidence, UpdatedAt: time.Now().UTC()}
}

// IsComplete reports whether every required field is collected.
func (c *CollectedData) IsComplete() bool {
	for _, f := range RequiredFields {
		if !c.Has(f) {
			return false
		}
	}
	return true
}

// MissingRequired returns the required fields not yet collected, in priority
// order.
func (c *CollectedData) MissingRequired() []Field {
	var missing []Field
	for _, f := range RequiredFields {
		if !c.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// NextUnmet returns the highest-priority field not yet collected and true,
// or false when everything is collected.
func (c *CollectedData) NextUnmet() (Field, bool) {
	for _, f := range FieldPriority {
		if !c.Has(f) {
			return f, true
		}
	}
	return "", false
}

// CompletionProgress is the weighted fraction of fields collected, in
// [0,100]. Required fields carry 75 points, optional fields share the
// remaining 25. Merging a non-empty value never decreases the result.
func (c *CollectedData) CompletionProgress() float64 {
	if c == nil {
		return 0
	}
	var required, optional int
	for _, f := range RequiredFields {
		if c.Has(f) {
			required++
		}
	}
	for _, f := range OptionalFields {
		if c.Has(f) {
			optional++
		}
	}
	progress := 75*float64(required)/float64(len(RequiredFields)) +
		25*float64(optional)/float64(len(OptionalFields))
	if progress > 100 {
		progress = 100
	}
	return progress
}

// Clear removes every collected value.
func (c *CollectedData) Clear() {
	c.Fields = make(map[Field]*FieldValue)
}

// Clone returns a deep copy safe for independent mutation.
func (c *CollectedData) Clone() *CollectedData {
	clone := NewCollectedData()
	if c == nil {
		return clone
	}
	for f, v := range c.Fields {
		if v == nil {
			continue
		}
		cp := *v
		clone.Fields[f] = &cp
	}
	return clone
}
