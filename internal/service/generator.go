package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/extract"
	"github.com/Antoine93/anki-doc-master/internal/logging"
)

const generatorSpecialist = "generator"

// Generate runs stage 3: per module, the restructured items are fed to the
// gateway and the resulting cards persisted. The session handle is restored
// from the ledger and saved after every module, so an interrupted run
// resumes without re-attaching the document. Rate-limit failures get exactly
// one delayed retry; this is the only stage that retries.
func (p *Pipeline) Generate(ctx context.Context, documentID, runID, cardType string, modules []string, force bool) (*core.Generation, error) {
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
	restructuration, err := p.items.GetMetadata(doc.ID, analysis.ID)
	if err != nil {
		return nil, err
	}

	// Image modules are excluded by default: they produce media references,
	// not text cards. An explicit module request overrides the exclusion.
	requested := restructuration.ModulesProcessed
	if len(modules) > 0 {
		requested = intersect(core.FilterValidModules(modules), restructuration.ModulesProcessed)
	} else {
		requested = subtract(requested, core.DefaultExcludedModules())
	}
	if len(requested) == 0 {
		return nil, core.ErrValidation(core.CodeNoModulesDetected, "no modules to generate cards for")
	}

	existing, err := p.cards.GetGeneration(doc.ID, analysis.ID, ct)
	if err != nil && !core.IsCategory(err, core.ErrCatNotFound) {
		return nil, err
	}
	if existing != nil && !force {
		ledger, lerr := p.cards.GetTracking(doc.ID, analysis.ID, ct, false)
		if lerr != nil {
			return nil, lerr
		}
		if ledger == nil {
			return nil, core.ErrAlreadyExists("generation", doc.ID)
		}
		if len(ledger.ResumeSet(requested)) == 0 {
			return existing, nil
		}
	}
	if force {
		if _, err := p.cards.Delete(doc.ID, analysis.ID, ct, false); err != nil {
			return nil, err
		}
	}

	ledger, err := p.cards.GetTracking(doc.ID, analysis.ID, ct, false)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = core.NewTracking(analysis.ID, doc.ID, StageGenerate, requested)
		ledger.CardType = ct
	}
	todo := ledger.ResumeSet(requested)

	log := p.logger.WithDocument(doc.ID).WithRun(analysis.ID).WithStage(StageGenerate).With("card_type", cardType)
	log.Info("generating cards", "modules", len(todo))

	specialist := generatorSpecialist + "/" + cardType
	system, err := p.prompts.SystemPrompt(specialist)
	if err != nil {
		return nil, err
	}
	session := core.Session{ID: ledger.SessionID, AttachmentPath: doc.Path}

	saveLedger := func() error {
		ledger.SessionID = session.ID
		return p.cards.SaveTracking(doc.ID, analysis.ID, ct, ledger, false)
	}

	for _, module := range todo {
		mlog := log.WithModule(string(module))
		ledger.MarkInProgress(module)
		if err := saveLedger(); err != nil {
			return nil, err
		}

		itemList, err := p.items.ListItems(doc.ID, analysis.ID, module)
		if err != nil {
			return nil, err
		}
		if len(itemList) == 0 {
			ledger.MarkCompleted(module, 0)
			if err := saveLedger(); err != nil {
				return nil, err
			}
			mlog.Info("no items, nothing to generate")
			continue
		}

		prompt, perr := p.modulePromptWithPayload(specialist, module, map[string]interface{}{"items": itemList})
		if perr != nil {
			ledger.MarkFailed(module, perr.Error())
			if serr := saveLedger(); serr != nil {
				return nil, serr
			}
			mlog.Warn("module prompt missing, skipping", "error", perr)
			continue
		}

		resp, gerr := p.sendWithRetry(ctx, core.GatewayRequest{
			Prompt:         prompt,
			System:         system,
			AttachmentPath: doc.Path,
			Session:        session,
		}, mlog)
		if gerr != nil {
			ledger.MarkFailed(module, gerr.Error())
			if serr := saveLedger(); serr != nil {
				return nil, serr
			}
			return nil, gerr
		}
		session = resp.Session

		generated, xerr := extract.Cards(resp.Text, ct)
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

		for i, card := range generated {
			if err := p.cards.SaveCard(doc.ID, analysis.ID, ct, module, i+1, card, false); err != nil {
				return nil, err
			}
		}
		ledger.MarkCompleted(module, len(generated))
		if err := saveLedger(); err != nil {
			return nil, err
		}
		mlog.Info("module cards generated", "cards", len(generated))
	}

	result := &core.Generation{
		ID:                core.NewID(),
		RestructurationID: restructuration.ID,
		AnalysisID:        analysis.ID,
		DocumentID:        doc.ID,
		CardType:          ct,
		ModulesProcessed:  completedModules(ledger, requested),
		CardsCount:        completedCounts(ledger),
		TotalCards:        ledger.TotalCount(),
		GeneratedAt:       time.Now().UTC(),
	}
	if err := p.cards.SaveGeneration(result); err != nil {
		return nil, err
	}
	log.Info("generation complete", "modules", len(result.ModulesProcessed), "cards", result.TotalCards)
	return result, nil
}

// sendWithRetry wraps a gateway call with the stage-3 rate-limit policy:
// on a rate-limit-shaped failure, wait out the reset hint and retry once.
func (p *Pipeline) sendWithRetry(ctx context.Context, req core.GatewayRequest, log *logging.Logger) (*core.GatewayResponse, error) {
	resp, err := p.gateway.Send(ctx, req)
	if err == nil || !core.IsCategory(err, core.ErrCatRateLimit) {
		return resp, err
	}

	delay := p.backoffDelay(ctx)
	log.Warn("rate limited, backing off before single retry", "delay", delay.String())
	if serr := p.sleep(ctx, delay); serr != nil {
		return nil, err
	}
	return p.gateway.Send(ctx, req)
}

// modulePromptWithPayload appends a JSON payload to a module prompt.
func (p *Pipeline) modulePromptWithPayload(specialist string, module core.ContentModule, payload map[string]interface{}) (string, error) {
	prompt, err := p.prompts.ModulePrompt(specialist, string(module))
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return prompt + "\n\n```json\n" + string(data) + "\n```", nil
}

// subtract removes the modules of b from a, preserving a's order.
func subtract(a, b []core.ContentModule) []core.ContentModule {
	excluded := make(map[core.ContentModule]bool, len(b))
	for _, m := range b {
		excluded[m] = true
	}
	out := make([]core.ContentModule, 0, len(a))
	for _, m := range a {
		if !excluded[m] {
			out = append(out, m)
		}
	}
	return out
}
