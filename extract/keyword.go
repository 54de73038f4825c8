package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/fixado/dialog/core"
)

// serviceKeywords maps each supported service type to the phrases that
// indicate it. Matching is accent-preserving and case-insensitive; longer
// phrases are worth more than single words.
var serviceKeywords = map[string][]string{
	"plomberie":   {"fuite", "robinet", "évier", "chauffe-eau", "canalisation", "plombier", "wc bouché", "dégât des eaux", "siphon", "ballon d'eau"},
	"électricité": {"panne de courant", "disjoncteur", "prise", "électricien", "tableau électrique", "court-circuit", "interrupteur", "luminaire"},
	"serrurerie":  {"serrure", "porte claquée", "clé cassée", "serrurier", "cylindre", "verrou", "cambriolage"},
	"chauffage":   {"chaudière", "radiateur", "chauffagiste", "thermostat", "plus de chauffage", "entretien chaudière"},
	"peinture":    {"peinture", "peindre", "repeindre", "papier peint", "enduit"},
	"menuiserie":  {"menuisier", "fenêtre", "volet", "parquet", "placard", "porte d'entrée"},
	"jardinage":   {"jardin", "tonte", "haie", "élagage", "pelouse", "jardinier"},
	"nettoyage":   {"nettoyage", "ménage", "vitres", "débarras"},
	"maçonnerie":  {"maçon", "fissure", "mur porteur", "carrelage", "chape", "cloison"},
}

var urgentKeywords = []string{"urgent", "urgence", "tout de suite", "immédiatement", "au plus vite", "dès que possible", "ce soir", "aujourd'hui", "emergency", "asap"}

var flexibleKeywords = []string{"pas pressé", "quand vous voulez", "pas urgent", "cette semaine", "la semaine prochaine"}

var (
	postalCodeRe = regexp.MustCompile(`\b\d{5}\b`)
	phoneRe      = regexp.MustCompile(`(?:\+33|0)[1-9](?:[ .\-]?\d{2}){4}`)
	budgetRe     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:€|euros?|eur)`)
	cityRe       = regexp.MustCompile(`(?i)\b(?:à|sur|près de)\s+([A-ZÀÂÉÈÊËÎÏÔÙÛÜ][\p{L}\-]+(?:\s\d{1,2}e(?:r)?)?)`)
)

// KeywordExtractor is the deterministic fallback extractor: weighted keyword
// and pattern matches against the inbound text, no network dependency. It is
// intentionally conservative: confidences stay below what a model-backed
// extractor reports, so later re-extraction can refine its results.
type KeywordExtractor struct{}

// NewKeywordExtractor constructs the deterministic extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

var _ Extractor = (*KeywordExtractor)(nil)

// Extract implements Extractor.
func (e *KeywordExtractor) Extract(_ context.Context, req Request) (*Result, error) {
	text := strings.ToLower(strings.TrimSpace(req.Text))
	res := &Result{Fields: make(map[core.Field]Candidate)}
	if text == "" {
		return res, nil
	}

	if service, conf := matchService(text); service != "" {
		res.Fields[core.FieldServiceType] = Candidate{Value: service, Confidence: conf}
	}
	if loc := matchLocation(req.Text); loc != "" {
		res.Fields[core.FieldLocation] = Candidate{Value: loc, Confidence: 0.6}
	}
	if phone := phoneRe.FindString(req.Text); phone != "" {
		res.Fields[core.FieldContact] = Candidate{Value: phone, Confidence: 0.8}
	}
	if m := budgetRe.FindStringSubmatch(text); m != nil {
		res.Fields[core.FieldBudget] = Candidate{Value: m[1], Confidence: 0.7}
	}
	if containsAny(text, urgentKeywords) {
		res.Fields[core.FieldUrgency] = Candidate{Value: "urgent", Confidence: 0.7}
	} else if containsAny(text, flexibleKeywords) {
		res.Fields[core.FieldUrgency] = Candidate{Value: "flexible", Confidence: 0.6}
	}

	// A sufficiently long message describing a matched problem doubles as
	// the description, at low confidence so a model pass can replace it.
	if _, hasService := res.Fields[core.FieldServiceType]; hasService && len([]rune(req.Text)) >= 10 && !req.Current.Has(core.FieldDescription) {
		res.Fields[core.FieldDescription] = Candidate{Value: strings.TrimSpace(req.Text), Confidence: 0.4}
	}

	for _, f := range core.RequiredFields {
		if _, ok := res.Fields[f]; !ok && !req.Current.Has(f) {
			res.Missing = append(res.Missing, f)
		}
	}
	return res, nil
}

// Info implements Extractor.
func (e *KeywordExtractor) Info() Info {
	return Info{Name: "keyword-fallback", Provider: "keyword"}
}

// matchService scores each service type by keyword hits and returns the best
// one. Confidence grows with hit count but is capped below model territory.
func matchService(text string) (string, float64) {
	best := ""
	bestScore := 0.0
	for service, keywords := range serviceKeywords {
		score := 0.0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				// Multi-word phrases are stronger signals.
				if strings.Contains(kw, " ") {
					score += 0.35
				} else {
					score += 0.25
				}
			}
		}
		if score > bestScore {
			best, bestScore = service, score
		}
	}
	if best == "" {
		return "", 0
	}
	if bestScore > 0.75 {
		bestScore = 0.75
	}
	return best, bestScore
}

func matchLocation(text string) string {
	if m := cityRe.FindStringSubmatch(text); m != nil {
		loc := m[1]
		if pc := postalCodeRe.FindString(text); pc != "" {
			return pc + " " + loc
		}
		return loc
	}
	if pc := postalCodeRe.FindString(text); pc != "" {
		return pc
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
