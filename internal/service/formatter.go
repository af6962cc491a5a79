package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/extract"
)

const formatterSpecialist = "formatter"

// Deck header directives required by the import format.
const (
	headerSeparator = "#separator:;"
	headerHTML      = "#html:true"
	headerNotetype  = "#notetype:Cloze"
)

// Format runs stage 5: all optimized cards are flattened into one gateway
// call and the response is persisted as the importable deck file. Unlike
// stages 2 to 4 this stage is not module-partitioned.
func (p *Pipeline) Format(ctx context.Context, documentID, runID, cardType string, force bool) (*core.Formatting, error) {
	if !core.IsValidCardType(cardType) {
		return nil, core.ErrValidation(core.CodeInvalidCardType, "unknown card type: "+cardType)
	}
	ct := core.CardType(cardType)

	doc, err := p.documents.Get(documentID)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(doc.ID, runID)
	if err != nil {
		return nil, err
	}
	optimization, err := p.cards.GetOptimization(doc.ID, analysis.ID, ct)
	if err != nil {
		return nil, err
	}

	existing, err := p.anki.GetFormatting(doc.ID, analysis.ID, ct)
	if err != nil && !core.IsCategory(err, core.ErrCatNotFound) {
		return nil, err
	}
	if existing != nil && !force {
		return nil, core.ErrAlreadyExists("formatting", doc.ID)
	}
	if force {
		if _, err := p.anki.Delete(doc.ID, analysis.ID, ct); err != nil {
			return nil, err
		}
	}

	var all []core.Card
	for _, module := range optimization.ModulesProcessed {
		cards, err := p.cards.ListCards(doc.ID, analysis.ID, ct, module, true)
		if err != nil {
			return nil, err
		}
		all = append(all, cards...)
	}
	if len(all) == 0 {
		return nil, core.ErrValidation(core.CodeNoModulesDetected, "no optimized cards to format")
	}

	log := p.logger.WithDocument(doc.ID).WithRun(analysis.ID).WithStage(StageFormat).With("card_type", cardType)
	log.Info("formatting deck", "cards", len(all))

	system, err := p.prompts.SystemPrompt(formatterSpecialist)
	if err != nil {
		return nil, err
	}
	prompt, err := p.prompts.ModulePrompt(formatterSpecialist, cardType)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(map[string]interface{}{"cards": all}, "", "  ")
	if err != nil {
		return nil, err
	}

	resp, err := p.gateway.Send(ctx, core.GatewayRequest{
		Prompt: prompt + "\n\n```json\n" + string(payload) + "\n```",
		System: system,
	})
	if err != nil {
		return nil, err
	}

	deck, err := extract.Deck(resp.Text)
	if err != nil {
		return nil, err
	}
	deck = EnsureDeckHeaders(deck, ct)

	result := &core.Formatting{
		ID:             core.NewID(),
		OptimizationID: optimization.ID,
		AnalysisID:     analysis.ID,
		DocumentID:     doc.ID,
		CardType:       ct,
		CardsCount:     CountDeckCards(deck),
		OutputFile:     p.anki.DeckPath(doc.ID, analysis.ID, ct),
		FormattedAt:    time.Now().UTC(),
	}
	if err := p.anki.SaveFormatting(result, deck); err != nil {
		return nil, err
	}
	log.Info("formatting complete", "cards", result.CardsCount, "file", result.OutputFile)
	return result, nil
}

// EnsureDeckHeaders injects the required directives when the model omitted
// them. Only the first three lines are inspected, so a stray "#separator"
// deep in the card text never suppresses the header.
func EnsureDeckHeaders(deck string, ct core.CardType) string {
	head := strings.Split(deck, "\n")
	if len(head) > 3 {
		head = head[:3]
	}
	hasSeparator, hasHTML, hasNotetype := false, false, false
	for _, line := range head {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#separator"):
			hasSeparator = true
		case strings.HasPrefix(trimmed, "#html"):
			hasHTML = true
		case strings.HasPrefix(trimmed, "#notetype"):
			hasNotetype = true
		}
	}

	var inject []string
	if !hasSeparator {
		inject = append(inject, headerSeparator)
	}
	if !hasHTML {
		inject = append(inject, headerHTML)
	}
	if ct == core.CardTypeCloze && !hasNotetype {
		inject = append(inject, headerNotetype)
	}
	if len(inject) == 0 {
		return deck
	}
	return strings.Join(inject, "\n") + "\n" + deck
}

// CountDeckCards counts the record lines of a deck: non-empty lines that
// are not header directives.
func CountDeckCards(deck string) int {
	count := 0
	for _, line := range strings.Split(deck, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		count++
	}
	return count
}
