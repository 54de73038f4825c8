package interrupt

import (
	"strings"

	"github.com/fixado/dialog/core"
)

// pattern is one weighted phrase. Weights of matched phrases are summed and
// capped at 1.0, so several weak signals can add up to a detection.
type pattern struct {
	phrase string
	weight float64
}

// patternTable holds the phrase list and detection threshold for one type.
type patternTable struct {
	patterns  []pattern
	threshold float64
}

// patternTables maps each interruption type to its French/English phrase
// table. Phrases are matched as substrings of the normalized text.
var patternTables = map[core.InterruptionType]patternTable{
	core.InterruptionCancellation: {
		threshold: 0.5,
		patterns: []pattern{
			{"annule tout", 0.9},
			{"annuler", 0.6},
			{"annule", 0.6},
			{"annulation", 0.7},
			{"laisse tomber", 0.8},
			{"laissez tomber", 0.8},
			{"j'abandonne", 0.7},
			{"oubliez", 0.5},
			{"oublie ma demande", 0.8},
			{"ne veux plus", 0.7},
			{"cancel", 0.6},
			{"stop", 0.4},
		},
	},
	core.InterruptionEscalation: {
		threshold: 0.5,
		patterns: []pattern{
			{"parler à un responsable", 0.9},
			{"parler a un responsable", 0.9},
			{"responsable", 0.5},
			{"parler à quelqu'un", 0.6},
			{"un humain", 0.7},
			{"une vraie personne", 0.8},
			{"un conseiller", 0.6},
			{"manager", 0.6},
			{"supervisor", 0.7},
			{"human", 0.5},
		},
	},
	core.InterruptionComplaint: {
		threshold: 0.5,
		patterns: []pattern{
			{"inadmissible", 0.8},
			{"scandaleux", 0.8},
			{"c'est pas normal", 0.7},
			{"pas normal", 0.5},
			{"pas content", 0.7},
			{"mécontent", 0.7},
			{"me plaindre", 0.8},
			{"réclamation", 0.8},
			{"mauvais service", 0.7},
			{"très déçu", 0.7},
			{"nul", 0.4},
			{"complaint", 0.7},
		},
	},
	core.InterruptionNewRequest: {
		threshold: 0.6,
		patterns: []pattern{
			{"nouvelle demande", 0.9},
			{"autre demande", 0.8},
			{"autre problème", 0.7},
			{"autre souci", 0.7},
			{"j'ai aussi", 0.5},
			{"en plus de ça", 0.4},
			{"deuxième problème", 0.8},
		},
	},
	core.InterruptionTopicChange: {
		threshold: 0.5,
		patterns: []pattern{
			{"changé d'avis", 0.8},
			{"change d'avis", 0.8},
			{"finalement non", 0.7},
			{"en fait non", 0.6},
			{"plutôt autre chose", 0.8},
			{"autre chose", 0.5},
			{"finalement", 0.3},
			{"en fait", 0.2},
		},
	},
	core.InterruptionModification: {
		threshold: 0.5,
		patterns: []pattern{
			{"me suis trompé", 0.8},
			{"me suis trompée", 0.8},
			{"modifier", 0.7},
			{"corriger", 0.7},
			{"changer l'adresse", 0.8},
			{"changer la date", 0.8},
			{"plutôt que", 0.4},
			{"erreur", 0.4},
			{"c'est pas ça", 0.5},
		},
	},
	core.InterruptionBacktrack: {
		threshold: 0.5,
		patterns: []pattern{
			{"question précédente", 0.9},
			{"question d'avant", 0.9},
			{"revenir en arrière", 0.8},
			{"reviens en arrière", 0.8},
			{"revenons", 0.5},
			{"étape précédente", 0.8},
			{"go back", 0.7},
		},
	},
	core.InterruptionClarification: {
		threshold: 0.5,
		patterns: []pattern{
			{"pourquoi vous demandez", 0.8},
			{"pourquoi cette question", 0.8},
			{"c'est quoi", 0.5},
			{"qu'est-ce que ça veut dire", 0.8},
			{"que veut dire", 0.7},
			{"je ne comprends pas", 0.7},
			{"comprends pas", 0.6},
			{"comment ça marche", 0.6},
			{"à quoi ça sert", 0.7},
		},
	},
}

// resumePhrases trigger an explicit resume of a saved exchange.
var resumePhrases = []string{
	"reprenons",
	"on reprend",
	"on continue",
	"continuons",
	"reprendre",
	"où en étions-nous",
	"ou en etions-nous",
	"resume",
}

// normalize lowercases the text and folds typographic apostrophes so the
// phrase tables match both keyboard and autocorrected input.
func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.ReplaceAll(text, "’", "'")
}

// scoreType sums the weights of matched phrases for one type, capped at 1.
func scoreType(text string, table patternTable) (float64, string) {
	var score float64
	var strongest string
	var strongestWeight float64
	for _, p := range table.patterns {
		if strings.Contains(text, p.phrase) {
			score += p.weight
			if p.weight > strongestWeight {
				strongestWeight = p.weight
				strongest = p.phrase
			}
		}
	}
	if score > 1 {
		score = 1
	}
	return score, strongest
}

// IsResumeRequest reports whether the text asks to pick the saved exchange
// back up.
func IsResumeRequest(text string) bool {
	text = normalize(text)
	for _, p := range resumePhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
