package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fixado/dialog/core"
)

// SystemPrompt returns the shared extraction instructions handed to every
// provider. The reply must be a single JSON object matching Result's wire
// shape; anything else is rejected by ParseResult.
func SystemPrompt() string {
	return `Tu extrais des informations structurées de messages clients pour des demandes de dépannage et travaux à domicile.

Réponds uniquement avec un objet JSON de la forme :
{"fields": {"<nom>": {"value": "...", "confidence": 0.0}}, "missing": ["..."], "suggested_response": "..."}

Champs possibles : serviceType (plomberie, électricité, serrurerie, chauffage, peinture, menuiserie, jardinage, nettoyage, maçonnerie), location, description, timing, urgency (urgent|normal|flexible), budget, contact, accessNotes, materials.

N'invente jamais de valeur : n'inclus un champ que si le message ou l'historique le contient réellement. confidence est ta certitude entre 0 et 1. missing liste les champs requis encore absents. suggested_response est une courte question de relance en français.`
}

// UserPrompt renders one extraction request: the already collected fields,
// the recent history and the new inbound message.
func UserPrompt(req Request) string {
	var b strings.Builder

	if req.Current != nil && len(req.Current.Fields) > 0 {
		b.WriteString("Champs déjà collectés :\n")
		for _, f := range core.FieldPriority {
			if v := req.Current.Get(f); v != nil && v.Value != "" {
				fmt.Fprintf(&b, "- %s: %s\n", f, v.Value)
			}
		}
		b.WriteString("\n")
	}

	if len(req.History) > 0 {
		b.WriteString("Historique récent :\n")
		for _, msg := range req.History {
			role := "client"
			if msg.Direction == core.DirectionOutbound {
				role = "assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Nouveau message du client :\n%s", req.Text)
	return b.String()
}

// ParseResult decodes a provider reply into a Result. Code fences around the
// JSON body are tolerated; confidences are clamped to [0,1].
func ParseResult(text string) (*Result, error) {
	body := strings.TrimSpace(text)
	if idx := strings.Index(body, "```"); idx >= 0 {
		body = body[idx+3:]
		body = strings.TrimPrefix(body, "json")
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
	}
	body = strings.TrimSpace(body)
	if start := strings.Index(body, "{"); start > 0 {
		body = body[start:]
	}

	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, fmt.Errorf("parse extraction result: %w", err)
	}
	if res.Fields == nil {
		res.Fields = make(map[core.Field]Candidate)
	}
	for f, c := range res.Fields {
		if c.Confidence < 0 {
			c.Confidence = 0
		} else if c.Confidence > 1 {
			c.Confidence = 1
		}
		res.Fields[f] = c
	}
	return &res, nil
}
