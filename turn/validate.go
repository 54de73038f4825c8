package turn

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fixado/dialog/core"
)

// AllowedServices is the closed set of service types the marketplace
// dispatches. Extraction output naming anything else is rejected and
// re-asked.
var AllowedServices = []string{
	"plomberie",
	"électricité",
	"chauffage",
	"serrurerie",
	"peinture",
	"menuiserie",
	"maçonnerie",
	"jardinage",
	"nettoyage",
}

var allowedUrgencies = []string{"urgent", "normal", "flexible"}

// phoneRe matches French numbers in national or +33 form, with optional
// space/dot/dash separators.
var phoneRe = regexp.MustCompile(`^(?:\+33|0)[1-9](?:[ .\-]?\d{2}){4}$`)

const (
	minDescriptionRunes = 10
	maxDescriptionRunes = 2000
	minLocationRunes    = 3
	maxLocationRunes    = 200
	maxFreeTextRunes    = 500
)

// validateField checks one extracted value before it may be merged. The
// returned reason is empty when the value is acceptable.
func validateField(f core.Field, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Sprintf("%s: empty value", f), false
	}

	switch f {
	case core.FieldServiceType:
		lower := strings.ToLower(value)
		for _, svc := range AllowedServices {
			if lower == svc {
				return "", true
			}
		}
		return fmt.Sprintf("%s: %q is not a supported service", f, value), false

	case core.FieldLocation:
		n := utf8.RuneCountInString(value)
		if n < minLocationRunes {
			return fmt.Sprintf("%s: too short", f), false
		}
		if n > maxLocationRunes {
			return fmt.Sprintf("%s: too long", f), false
		}
		return "", true

	case core.FieldDescription:
		n := utf8.RuneCountInString(value)
		if n < minDescriptionRunes {
			return fmt.Sprintf("%s: too short (%d runes, minimum %d)", f, n, minDescriptionRunes), false
		}
		if n > maxDescriptionRunes {
			return fmt.Sprintf("%s: too long", f), false
		}
		return "", true

	case core.FieldContact:
		compact := strings.TrimSpace(value)
		if phoneRe.MatchString(compact) || strings.Contains(compact, "@") {
			return "", true
		}
		return fmt.Sprintf("%s: %q is neither a French phone number nor an email", f, value), false

	case core.FieldUrgency:
		lower := strings.ToLower(value)
		for _, u := range allowedUrgencies {
			if lower == u {
				return "", true
			}
		}
		return fmt.Sprintf("%s: %q is not one of %v", f, value, allowedUrgencies), false

	default:
		if utf8.RuneCountInString(value) > maxFreeTextRunes {
			return fmt.Sprintf("%s: too long", f), false
		}
		return "", true
	}
}

// validateCollected re-checks every collected field as a whole before the
// session may leave VALIDATING.
func validateCollected(c *core.CollectedData) []string {
	var issues []string
	for _, f := range core.FieldPriority {
		v := c.Get(f)
		if v == nil || v.Value == "" {
			continue
		}
		if reason, ok := validateField(f, v.Value); !ok {
			issues = append(issues, reason)
		}
	}
	return issues
}
