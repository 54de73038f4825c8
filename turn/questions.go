package turn

import (
	"strings"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/optimize"
)

// fieldQuestions holds the outbound question per intake field.
var fieldQuestions = map[core.Field]string{
	core.FieldServiceType: "Quel type de service recherchez-vous ? (plomberie, électricité, serrurerie…)",
	core.FieldLocation:    "À quelle adresse l'intervention doit-elle avoir lieu ?",
	core.FieldDescription: "Pouvez-vous décrire le problème en quelques mots ?",
	core.FieldUrgency:     "Est-ce urgent, ou l'intervention peut-elle attendre quelques jours ?",
	core.FieldContact:     "À quel numéro de téléphone l'artisan peut-il vous joindre ?",
	core.FieldTiming:      "Quand souhaitez-vous que l'intervention ait lieu ?",
	core.FieldBudget:      "Avez-vous un budget en tête pour cette intervention ?",
	core.FieldAccessNotes: "Y a-t-il des consignes d'accès à connaître (étage, digicode, gardien…) ?",
	core.FieldMaterials:   "Faut-il prévoir des fournitures ou du matériel particulier ?",
}

// fieldPhases maps each intake field to the collection phase the dialogue
// enters when asking for it. Fields without a dedicated phase fall under
// the details phase.
var fieldPhases = map[core.Field]core.Phase{
	core.FieldServiceType: core.PhaseServiceType,
	core.FieldLocation:    core.PhaseLocation,
	core.FieldDescription: core.PhaseDescription,
	core.FieldContact:     core.PhaseContact,
}

// phaseFor returns the collection phase for the field being asked next.
func phaseFor(f core.Field) core.Phase {
	if phase, ok := fieldPhases[f]; ok {
		return phase
	}
	return core.PhaseDetails
}

// fieldSuggestions are appended when the optimizer recommends offering a
// predicted or example value instead of an open question.
var fieldSuggestions = map[core.Field]string{
	core.FieldUrgency:     "La plupart de nos clients choisissent une intervention sous 48h, cela vous conviendrait-il ?",
	core.FieldTiming:      "Par exemple : demain matin, ou en fin de semaine.",
	core.FieldBudget:      "Si vous n'avez pas de budget précis, l'artisan pourra vous proposer un devis gratuit.",
	core.FieldContact:     "Un numéro de portable au format 06 12 34 56 78 convient parfaitement.",
	core.FieldDescription: "Par exemple : « fuite sous l'évier de la cuisine depuis ce matin ».",
}

// fieldLabels are the French labels used in the confirmation summary.
var fieldLabels = map[core.Field]string{
	core.FieldServiceType: "Service",
	core.FieldLocation:    "Adresse",
	core.FieldDescription: "Description",
	core.FieldTiming:      "Période souhaitée",
	core.FieldUrgency:     "Urgence",
	core.FieldBudget:      "Budget",
	core.FieldContact:     "Contact",
	core.FieldAccessNotes: "Accès",
	core.FieldMaterials:   "Matériel",
}

const greeting = "Bonjour ! Je vais vous aider à préparer votre demande d'intervention."

// buildQuestion composes the outbound message asking for the next unmet
// field(s). The recommendation only widens the batch or adds a suggestion;
// the fixed priority order always picks which fields are asked.
func buildQuestion(missing []core.Field, rec *optimize.Recommendation) (text, actionTag string) {
	if len(missing) == 0 {
		return "", ""
	}

	batch := 1
	suggest := false
	if best, ok := rec.Best(); ok {
		batch = optimize.BatchSize(best.Strategy)
		suggest = optimize.OffersSuggestion(best.Strategy)
	}
	if batch > len(missing) {
		batch = len(missing)
	}

	var parts []string
	for _, f := range missing[:batch] {
		parts = append(parts, fieldQuestions[f])
	}
	text = strings.Join(parts, " ")
	if suggest {
		if hint, ok := fieldSuggestions[missing[0]]; ok {
			text += " " + hint
		}
	}
	return text, "ask_" + string(missing[0])
}

// buildSummary renders the confirmation recap of everything collected.
func buildSummary(c *core.CollectedData) string {
	var sb strings.Builder
	sb.WriteString("Voici le récapitulatif de votre demande :\n")
	for _, f := range core.FieldPriority {
		v := c.Get(f)
		if v == nil || v.Value == "" {
			continue
		}
		sb.WriteString("• ")
		sb.WriteString(fieldLabels[f])
		sb.WriteString(" : ")
		sb.WriteString(v.Value)
		sb.WriteString("\n")
	}
	sb.WriteString("Confirmez-vous ces informations ? (oui/non)")
	return sb.String()
}

var affirmatives = []string{"oui", "ok", "d'accord", "c'est bon", "parfait", "confirme", "yes", "exact", "correct"}

var negatives = []string{"non", "pas du tout", "incorrect", "no", "pas exactement", "faux"}

// readConfirmation interprets a reply while CONFIRMING: yes, no, or neither.
func readConfirmation(text string) (confirmed, denied bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Trim(text, "!. ")
	matches := func(word string) bool {
		return text == word || strings.HasPrefix(text, word+" ") || strings.HasPrefix(text, word+",")
	}
	for _, n := range negatives {
		if matches(n) {
			return false, true
		}
	}
	for _, a := range affirmatives {
		if matches(a) {
			return true, false
		}
	}
	return false, false
}
