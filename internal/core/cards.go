package core

import (
	"strings"
	"time"
)

// CardType is the closed enumeration of flashcard shapes.
type CardType string

const (
	CardTypeBasic CardType = "basic" // question/answer front and back
	CardTypeCloze CardType = "cloze" // cloze-deletion text
)

// ValidCardTypes returns the card type enumeration.
func ValidCardTypes() []CardType {
	return []CardType{CardTypeBasic, CardTypeCloze}
}

// IsValidCardType reports whether name is a known card type.
func IsValidCardType(name string) bool {
	return CardType(name) == CardTypeBasic || CardType(name) == CardTypeCloze
}

// Card is a single flashcard record. Payloads are loosely shaped maps
// straight from the extractor; ValidShape gates what is persisted.
type Card map[string]interface{}

// ValidShape checks the type-specific shape contract: basic cards need
// non-empty front and back, cloze cards need non-empty text. Records that
// fail the check are dropped, never fatal.
func (c Card) ValidShape(ct CardType) bool {
	switch ct {
	case CardTypeBasic:
		return c.nonEmpty("front") && c.nonEmpty("back")
	case CardTypeCloze:
		return c.nonEmpty("text")
	}
	return false
}

func (c Card) nonEmpty(key string) bool {
	v, ok := c[key]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

// MarkOptimized sets the optimized marker carried by stage-4 cards.
func (c Card) MarkOptimized() Card {
	c["optimized"] = true
	return c
}

// Generation is the output of the third stage: cards generated per module.
type Generation struct {
	ID                string          `json:"id"`
	RestructurationID string          `json:"restructuration_id"`
	AnalysisID        string          `json:"analysis_id"`
	DocumentID        string          `json:"document_id"`
	CardType          CardType        `json:"card_type"`
	ModulesProcessed  []ContentModule `json:"modules_processed"`
	CardsCount        map[string]int  `json:"cards_count"`
	TotalCards        int             `json:"total_cards"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
