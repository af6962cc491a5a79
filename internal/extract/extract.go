// Package extract parses raw reasoning-engine responses into validated
// records. The engine is not contractually bound to emit clean JSON, so
// extraction is an ordered fallback chain: a fenced block tagged for the
// expected content, then any fenced block, then the outermost brace span.
// Malformed individual records are dropped; a wholly unparseable response
// surfaces as a gateway error.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

// Modules extracts the detected module list from an analysis response.
// A parseable object without a detected_modules field yields an empty list.
func Modules(raw string) ([]string, error) {
	obj, err := payload(raw, "json")
	if err != nil {
		return nil, err
	}
	return stringList(obj, "detected_modules"), nil
}

// Items extracts module items from a restructuring response.
func Items(raw string) ([]map[string]interface{}, error) {
	obj, err := payload(raw, "json")
	if err != nil {
		return nil, err
	}
	return objectList(obj, "items"), nil
}

// Cards extracts cards from a generation or optimization response,
// discarding records that fail the type-specific shape check.
func Cards(raw string, ct core.CardType) ([]core.Card, error) {
	obj, err := payload(raw, "json")
	if err != nil {
		return nil, err
	}
	records := objectList(obj, "cards")
	cards := make([]core.Card, 0, len(records))
	for _, rec := range records {
		card := core.Card(rec)
		if card.ValidShape(ct) {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// deckFenceTags are the fence languages a formatting response may use for
// the emitted deck text.
var deckFenceTags = []string{"txt", "text", "anki"}

// Deck extracts the formatted deck text from a formatting response. When
// no fence is present the whole response is taken as the deck.
func Deck(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", core.ErrGateway(core.CodeEmptyResponse, "empty response from reasoning engine")
	}
	for _, tag := range deckFenceTags {
		if inner, ok := fencedBlock(trimmed, tag); ok {
			return strings.TrimSpace(inner), nil
		}
	}
	if inner, ok := fencedBlock(trimmed, ""); ok {
		return strings.TrimSpace(inner), nil
	}
	return trimmed, nil
}

// payload runs the fallback chain and parses the result as a JSON object.
func payload(raw, fenceTag string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, core.ErrGateway(core.CodeEmptyResponse, "empty response from reasoning engine")
	}

	candidate := ""
	if inner, ok := fencedBlock(trimmed, fenceTag); ok {
		candidate = inner
	} else if inner, ok := fencedBlock(trimmed, ""); ok {
		candidate = inner
	} else if span := braceSpan(trimmed); span != "" {
		candidate = span
	} else {
		return nil, core.ErrGateway(core.CodeParseFailed, "no structured content in response")
	}

	// A fenced block may still carry prose around the object.
	candidate = strings.TrimSpace(candidate)
	if !strings.HasPrefix(candidate, "{") {
		if span := braceSpan(candidate); span != "" {
			candidate = span
		}
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, core.ErrGateway(core.CodeParseFailed, "response is not valid JSON").WithCause(err)
	}
	return obj, nil
}

// fencedBlock returns the interior of the first ``` block with the given
// tag. An empty tag matches any fence.
func fencedBlock(s, tag string) (string, bool) {
	marker := "```" + tag
	start := strings.Index(s, marker)
	if start == -1 {
		return "", false
	}
	rest := s[start+len(marker):]
	if tag == "" {
		// Skip the language line of an untagged search.
		if nl := strings.Index(rest, "\n"); nl != -1 {
			rest = rest[nl+1:]
		}
	} else {
		rest = strings.TrimPrefix(rest, "\n")
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return rest, true
	}
	return rest[:end], true
}

// braceSpan returns the substring from the first '{' to the last '}'.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

func stringList(obj map[string]interface{}, field string) []string {
	raw, ok := obj[field].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func objectList(obj map[string]interface{}, field string) []map[string]interface{} {
	raw, ok := obj[field].([]interface{})
	if !ok {
		return []map[string]interface{}{}
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
