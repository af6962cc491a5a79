package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/extract"
)

const optimizerSpecialist = "optimizer"

// Content types the optimizer distinguishes when picking rewriting rules.
const (
	ContentTypeGeneric = "generic"
	ContentTypeMath    = "math"
	ContentTypeCode    = "code"
	ContentTypeTables  = "tables"
	ContentTypeImages  = "images"
)

// detection threshold: a content type must appear in more than this share
// of a module's cards to win.
const contentTypeThreshold = 0.3

func isValidContentType(name string) bool {
	switch name {
	case ContentTypeGeneric, ContentTypeMath, ContentTypeCode, ContentTypeTables, ContentTypeImages:
		return true
	}
	return false
}

// Optimize runs stage 4: per module, the generated cards are rewritten by
// the gateway under content-type-specific rules and persisted into the
// optimized namespace. contentType pins the rule set for every module when
// non-empty; otherwise each module's type is detected heuristically.
func (p *Pipeline) Optimize(ctx context.Context, documentID, runID, cardType, contentType string, force bool) (*core.Optimization, error) {
	if !core.IsValidCardType(cardType) {
		return nil, core.ErrValidation(core.CodeInvalidCardType, "unknown card type: "+cardType)
	}
	if contentType != "" && !isValidContentType(contentType) {
		return nil, core.ErrValidation(core.CodeInvalidContentType, "unknown content type: "+contentType)
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
	generation, err := p.cards.GetGeneration(doc.ID, analysis.ID, ct)
	if err != nil {
		return nil, err
	}

	requested := generation.ModulesProcessed
	if len(requested) == 0 {
		return nil, core.ErrValidation(core.CodeNoModulesDetected, "generation processed no modules")
	}

	existing, err := p.cards.GetOptimization(doc.ID, analysis.ID, ct)
	if err != nil && !core.IsCategory(err, core.ErrCatNotFound) {
		return nil, err
	}
	if existing != nil && !force {
		ledger, lerr := p.cards.GetTracking(doc.ID, analysis.ID, ct, true)
		if lerr != nil {
			return nil, lerr
		}
		if ledger == nil {
			return nil, core.ErrAlreadyExists("optimization", doc.ID)
		}
		if len(ledger.ResumeSet(requested)) == 0 {
			return existing, nil
		}
	}
	if force {
		if _, err := p.cards.Delete(doc.ID, analysis.ID, ct, true); err != nil {
			return nil, err
		}
	}

	ledger, err := p.cards.GetTracking(doc.ID, analysis.ID, ct, true)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = core.NewTracking(analysis.ID, doc.ID, StageOptimize, requested)
		ledger.CardType = ct
	}
	todo := ledger.ResumeSet(requested)

	log := p.logger.WithDocument(doc.ID).WithRun(analysis.ID).WithStage(StageOptimize).With("card_type", cardType)
	log.Info("optimizing cards", "modules", len(todo))

	specialist := optimizerSpecialist + "/" + cardType
	system, err := p.prompts.SystemPrompt(specialist)
	if err != nil {
		return nil, err
	}
	session := core.Session{ID: ledger.SessionID, AttachmentPath: doc.Path}

	saveLedger := func() error {
		ledger.SessionID = session.ID
		return p.cards.SaveTracking(doc.ID, analysis.ID, ct, ledger, true)
	}

	stats := make(map[string]core.ModuleStats, len(requested))
	cardsInput := 0

	for _, module := range todo {
		mlog := log.WithModule(string(module))
		ledger.MarkInProgress(module)
		if err := saveLedger(); err != nil {
			return nil, err
		}

		input, err := p.cards.ListCards(doc.ID, analysis.ID, ct, module, false)
		if err != nil {
			return nil, err
		}
		cardsInput += len(input)
		if len(input) == 0 {
			ledger.MarkCompleted(module, 0)
			if err := saveLedger(); err != nil {
				return nil, err
			}
			stats[string(module)] = core.ModuleStats{ContentType: ContentTypeGeneric}
			mlog.Info("no cards, nothing to optimize")
			continue
		}

		detected := contentType
		if detected == "" {
			detected = DetectContentType(input)
		}

		prompt, perr := p.optimizerPrompt(specialist, detected, input)
		if perr != nil {
			ledger.MarkFailed(module, perr.Error())
			if serr := saveLedger(); serr != nil {
				return nil, serr
			}
			mlog.Warn("optimizer prompt missing, skipping", "content_type", detected, "error", perr)
			continue
		}

		resp, gerr := p.gateway.Send(ctx, core.GatewayRequest{
			Prompt:         prompt,
			System:         system,
			AttachmentPath: doc.Path,
			Session:        session,
		})
		if gerr != nil {
			ledger.MarkFailed(module, gerr.Error())
			if serr := saveLedger(); serr != nil {
				return nil, serr
			}
			return nil, gerr
		}
		session = resp.Session

		optimized, xerr := extract.Cards(resp.Text, ct)
		if xerr != nil {
			if core.IsGatewayError(xerr) {
				ledger.MarkFailed(module, xerr.Error())
				if serr := saveLedger(); serr != nil {
					return nil, serr
				}
				return nil, xerr
			}
			ledger.MarkFailed(module, xerr.Error())
			if serr := saveLedger(); serr != nil {
				return nil, serr
			}
			continue
		}

		for i, card := range optimized {
			if err := p.cards.SaveCard(doc.ID, analysis.ID, ct, module, i+1, card.MarkOptimized(), true); err != nil {
				return nil, err
			}
		}
		ledger.MarkCompleted(module, len(optimized))
		if err := saveLedger(); err != nil {
			return nil, err
		}
		stats[string(module)] = core.ModuleStats{
			Input:       len(input),
			Output:      len(optimized),
			ContentType: detected,
		}
		mlog.Info("module optimized", "content_type", detected, "in", len(input), "out", len(optimized))
	}

	// Modules completed in an earlier interrupted run keep their counts but
	// their input size has to be recounted for the aggregate.
	for _, module := range requested {
		if _, seen := stats[string(module)]; seen {
			continue
		}
		prog, ok := ledger.Modules[string(module)]
		if !ok || prog.Status != core.StatusCompleted {
			continue
		}
		input, err := p.cards.ListCards(doc.ID, analysis.ID, ct, module, false)
		if err != nil {
			return nil, err
		}
		cardsInput += len(input)
		stats[string(module)] = core.ModuleStats{
			Input:       len(input),
			Output:      prog.Count,
			ContentType: ContentTypeGeneric,
		}
	}

	cardsOutput := ledger.TotalCount()
	result := &core.Optimization{
		ID:                core.NewID(),
		GenerationID:      generation.ID,
		AnalysisID:        analysis.ID,
		DocumentID:        doc.ID,
		CardType:          ct,
		ModulesProcessed:  completedModules(ledger, requested),
		ModulesStats:      stats,
		CardsInput:        cardsInput,
		CardsOutput:       cardsOutput,
		OptimizationRatio: core.OptimizationRatio(cardsInput, cardsOutput),
		OptimizedAt:       time.Now().UTC(),
	}
	if err := p.cards.SaveOptimization(result); err != nil {
		return nil, err
	}
	log.Info("optimization complete", "in", cardsInput, "out", cardsOutput, "ratio", result.OptimizationRatio)
	return result, nil
}

// optimizerPrompt resolves the rule set for a detected content type, falling
// back to the generic rules when no type-specific prompt is deployed.
func (p *Pipeline) optimizerPrompt(specialist, contentType string, cards []core.Card) (string, error) {
	prompt, err := p.prompts.ModulePrompt(specialist, contentType)
	if err != nil && contentType != ContentTypeGeneric {
		prompt, err = p.prompts.ModulePrompt(specialist, ContentTypeGeneric)
	}
	if err != nil {
		return "", err
	}
	data, merr := json.MarshalIndent(map[string]interface{}{"cards": cards}, "", "  ")
	if merr != nil {
		return "", merr
	}
	return prompt + "\n\n```json\n" + string(data) + "\n```", nil
}

// DetectContentType scores heuristic markers against a module's cards. A
// type wins when its markers appear in more than 30% of the cards; ties go
// to the first type in scan order; no winner means generic.
func DetectContentType(cards []core.Card) string {
	if len(cards) == 0 {
		return ContentTypeGeneric
	}
	counts := map[string]int{}
	for _, card := range cards {
		data, err := json.Marshal(card)
		if err != nil {
			continue
		}
		text := strings.ToLower(string(data))
		if hasMathMarkers(text) {
			counts[ContentTypeMath]++
		}
		if hasCodeMarkers(text) {
			counts[ContentTypeCode]++
		}
		if hasTableMarkers(text) {
			counts[ContentTypeTables]++
		}
		if hasImageMarkers(text) {
			counts[ContentTypeImages]++
		}
	}

	threshold := float64(len(cards)) * contentTypeThreshold
	for _, ctype := range []string{ContentTypeMath, ContentTypeCode, ContentTypeTables, ContentTypeImages} {
		if float64(counts[ctype]) > threshold {
			return ctype
		}
	}
	return ContentTypeGeneric
}

func hasMathMarkers(text string) bool {
	if strings.Contains(text, `\frac`) || strings.Contains(text, `\sum`) || strings.Contains(text, `\int`) {
		return true
	}
	first := strings.Index(text, "$")
	return first != -1 && strings.Index(text[first+1:], "$") != -1
}

func hasCodeMarkers(text string) bool {
	return strings.Contains(text, "```") ||
		strings.Contains(text, "def ") ||
		strings.Contains(text, "function")
}

func hasTableMarkers(text string) bool {
	return strings.Contains(text, "|") && strings.Contains(text, "---")
}

func hasImageMarkers(text string) bool {
	return strings.Contains(text, "image") ||
		strings.Contains(text, "figure") ||
		strings.Contains(text, "schéma")
}
