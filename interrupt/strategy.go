package interrupt

import "github.com/fixado/dialog/core"

// Strategy describes how one interruption type is recovered. The table is
// static; per-session nuance (severity, snapshots, audit payloads) is the
// manager's job.
type Strategy struct {
	// Actions names the recovery steps, in execution order. They end up in
	// the turn result and the structured log.
	Actions []string
	// Response is the reply template sent to the user. It may reference
	// {{.Progress}}, the completion percentage at detection time.
	Response string
	// Target is the state to transition to, or empty to stay put.
	Target core.State
	// ClearData wipes the collected fields. Strategies that keep them
	// snapshot state and data first so a resume can restore the exchange.
	ClearData bool
	// Audit emits a durable audit record for external follow-up.
	Audit bool
}

var strategies = map[core.InterruptionType]Strategy{
	core.InterruptionCancellation: {
		Actions:   []string{"confirm_cancellation", "clear_collected_data", "reset_flow"},
		Response:  "D'accord, j'annule votre demande. Toutes les informations saisies ont été effacées. N'hésitez pas à revenir si vous avez besoin d'un artisan.",
		Target:    core.StateInitial,
		ClearData: true,
	},
	core.InterruptionEscalation: {
		Actions:  []string{"log_escalation", "notify_operator"},
		Response: "Je comprends, je vous mets en relation avec un responsable. Un membre de notre équipe va reprendre la conversation.",
		Target:   core.StateEscalated,
		Audit:    true,
	},
	core.InterruptionComplaint: {
		Actions:  []string{"acknowledge_complaint", "log_complaint"},
		Response: "Je suis désolé pour ce désagrément, votre remarque a été transmise à notre équipe. Pouvons-nous continuer votre demande ?",
		Audit:    true,
	},
	core.InterruptionNewRequest: {
		Actions:   []string{"archive_current_request", "start_new_request"},
		Response:  "Très bien, occupons-nous de cette nouvelle demande. Pouvez-vous me décrire le problème ?",
		Target:    core.StateCollecting,
		ClearData: true,
	},
	core.InterruptionTopicChange: {
		Actions:   []string{"refocus_topic"},
		Response:  "D'accord, parlons-en. De quel service avez-vous besoin ?",
		Target:    core.StateCollecting,
		ClearData: true,
	},
	core.InterruptionModification: {
		Actions:  []string{"reopen_field"},
		Response: "Bien sûr, que souhaitez-vous modifier ?",
		Target:   core.StateCollecting,
	},
	core.InterruptionClarification: {
		Actions:  []string{"answer_question", "restate_pending_question"},
		Response: "Je collecte ces informations pour trouver l'artisan le plus adapté à votre besoin ({{.Progress}}% de votre demande est déjà renseigné). Reprenons là où nous en étions.",
	},
	core.InterruptionBacktrack: {
		Actions:  []string{"rollback_state"},
		Response: "Pas de problème, revenons à l'étape précédente.",
	},
}

// StrategyFor returns the recovery strategy registered for a type. Unknown
// types fall back to the clarification strategy, the least disruptive one.
func StrategyFor(typ core.InterruptionType) Strategy {
	if s, ok := strategies[typ]; ok {
		return s
	}
	return strategies[core.InterruptionClarification]
}

// baseSeverity is the starting grade per type before contextual adjustment.
var baseSeverity = map[core.InterruptionType]core.Severity{
	core.InterruptionEscalation:    core.SeverityCritical,
	core.InterruptionCancellation:  core.SeverityHigh,
	core.InterruptionComplaint:     core.SeverityHigh,
	core.InterruptionTopicChange:   core.SeverityMedium,
	core.InterruptionNewRequest:    core.SeverityMedium,
	core.InterruptionModification:  core.SeverityLow,
	core.InterruptionClarification: core.SeverityLow,
	core.InterruptionBacktrack:     core.SeverityLow,
}

// DeriveSeverity grades a detection: the per-type base, bumped up one level
// when the classifier is very confident, and down one level when the
// request is nearly complete so late-stage hiccups stay gentle. Escalations
// are never downgraded.
func DeriveSeverity(typ core.InterruptionType, confidence, progress float64) core.Severity {
	sev := baseSeverity[typ]
	if confidence >= 0.9 && sev < core.SeverityCritical {
		sev++
	}
	if progress >= 80 && typ != core.InterruptionEscalation && sev > core.SeverityLow {
		sev--
	}
	return sev
}
