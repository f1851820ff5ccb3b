package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScoreItem is the compact projection of a segment sent to the oracle.
type ScoreItem struct {
	Index int     `json:"i"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ScoreEntry is one validated result returned by the oracle.
type ScoreEntry struct {
	Index int
	Score float64
	Label string
}

// DefaultSystemPrompt is used when no prompt document is configured.
const DefaultSystemPrompt = "Tu es un expert en analyse de discours thérapeutique. " +
	"Tu évalues l'intérêt clinique de segments parlés pour en faire un best-of audio."

const scoringInstructions = "Tu es un assistant thérapeutique. On te donne une liste de segments (texte + timestamps).\n" +
	"Objectif: attribuer un score d'intérêt thérapeutique (0 à 5) à CHAQUE segment.\n" +
	"- 0 = sans intérêt; 5 = très pertinent (prise de conscience, émotion, insight, formulation de besoins, schéma répétitif, etc.).\n" +
	"Retourne UNIQUEMENT un JSON de la forme: {\"scores\": [{\"i\": int, \"score\": float, \"label\": \"...\"}]}\n" +
	"N'invente pas d'indices temporels. Ne renvoie pas le texte.\n\n"

// BuildUserPrompt renders the instruction preamble followed by the JSON batch.
func BuildUserPrompt(batch []ScoreItem) (string, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("score prompt encode: %w", err)
	}
	return scoringInstructions + "Segments:\n" + string(payload), nil
}

type rawScores struct {
	Scores []json.RawMessage `json:"scores"`
}

// DecodeScores parses an oracle reply of the form {"scores":[{"i":..,"score":..,"label":..}]}.
// Entries that are not objects, lack a usable index or carry a non-numeric
// score are dropped.
func DecodeScores(content string) ([]ScoreEntry, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errors.New("score decode: empty payload")
	}
	var raw rawScores
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		sanitized := sanitizeJSONPayload(trimmed)
		if sanitized == "" || sanitized == trimmed {
			return nil, fmt.Errorf("score decode: %w (payload snippet: %s)", err, snippet(trimmed))
		}
		if err := json.Unmarshal([]byte(sanitized), &raw); err != nil {
			return nil, fmt.Errorf("score decode: %w (sanitized payload snippet: %s)", err, snippet(sanitized))
		}
	}

	out := make([]ScoreEntry, 0, len(raw.Scores))
	for _, elem := range raw.Scores {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(elem, &item); err != nil || item == nil {
			continue
		}
		idx, ok := rawIndex(item)
		if !ok {
			continue
		}
		entry := ScoreEntry{Index: idx}
		if v, present := item["score"]; present {
			score, ok := rawNumber(v)
			if !ok {
				continue
			}
			entry.Score = score
		}
		if v, present := item["label"]; present {
			var label string
			if json.Unmarshal(v, &label) == nil {
				entry.Label = strings.TrimSpace(label)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func rawIndex(item map[string]json.RawMessage) (int, bool) {
	for _, key := range []string{"i", "index"} {
		v, ok := item[key]
		if !ok {
			continue
		}
		n, ok := rawNumber(v)
		if !ok || n < 0 || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// rawNumber accepts JSON numbers and numeric strings ("4.5").
func rawNumber(v json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}
