package service

import (
	"github.com/Antoine93/anki-doc-master/internal/core"
)

// Read operations over persisted stage output, exposed to the CLI and HTTP
// surfaces. All run-scoped reads resolve the latest run when runID is empty.

// RegisterDocument adds a source file to the document index.
func (p *Pipeline) RegisterDocument(path string) (*core.Document, error) {
	return p.documents.Register(path)
}

// GetDocument returns one registered document.
func (p *Pipeline) GetDocument(id string) (*core.Document, error) {
	return p.documents.Get(id)
}

// ListDocuments returns every registered document.
func (p *Pipeline) ListDocuments() ([]*core.Document, error) {
	return p.documents.List()
}

// DeleteDocument removes a document and every run stored under it.
func (p *Pipeline) DeleteDocument(id string) error {
	runs, err := p.analyses.List(id)
	if err != nil && !core.IsCategory(err, core.ErrCatNotFound) {
		return err
	}
	for _, run := range runs {
		if _, err := p.analyses.Delete(id, run.ID); err != nil {
			return err
		}
	}
	return p.documents.Delete(id)
}

// GetAnalysis returns a run's analysis record.
func (p *Pipeline) GetAnalysis(documentID, runID string) (*core.Analysis, error) {
	return p.analyses.Get(documentID, runID)
}

// ListAnalyses returns the full analysis history of a document.
func (p *Pipeline) ListAnalyses(documentID string) ([]*core.Analysis, error) {
	return p.analyses.List(documentID)
}

// DeleteAnalysis removes one run and everything derived from it.
func (p *Pipeline) DeleteAnalysis(documentID, runID string) (bool, error) {
	return p.analyses.Delete(documentID, runID)
}

// GetRestructuration returns a run's stage-2 metadata.
func (p *Pipeline) GetRestructuration(documentID, runID string) (*core.Restructuration, error) {
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return nil, err
	}
	return p.items.GetMetadata(documentID, analysis.ID)
}

// GetRestructureTracking returns the stage-2 ledger, nil when absent.
func (p *Pipeline) GetRestructureTracking(documentID, runID string) (*core.Tracking, error) {
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return nil, err
	}
	return p.items.GetTracking(documentID, analysis.ID)
}

// GetGeneration returns a run's stage-3 metadata for one card type.
func (p *Pipeline) GetGeneration(documentID, runID, cardType string) (*core.Generation, error) {
	ct, err := parseCardType(cardType)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return nil, err
	}
	return p.cards.GetGeneration(documentID, analysis.ID, ct)
}

// GetGenerationTracking returns the stage-3 ledger, nil when absent.
func (p *Pipeline) GetGenerationTracking(documentID, runID, cardType string) (*core.Tracking, error) {
	ct, err := parseCardType(cardType)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return nil, err
	}
	return p.cards.GetTracking(documentID, analysis.ID, ct, false)
}

// GetOptimization returns a run's stage-4 metadata for one card type.
func (p *Pipeline) GetOptimization(documentID, runID, cardType string) (*core.Optimization, error) {
	ct, err := parseCardType(cardType)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return nil, err
	}
	return p.cards.GetOptimization(documentID, analysis.ID, ct)
}

// GetOptimizationTracking returns the stage-4 ledger, nil when absent.
func (p *Pipeline) GetOptimizationTracking(documentID, runID, cardType string) (*core.Tracking, error) {
	ct, err := parseCardType(cardType)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return nil, err
	}
	return p.cards.GetTracking(documentID, analysis.ID, ct, true)
}

// GetFormatting returns a run's stage-5 metadata for one card type.
func (p *Pipeline) GetFormatting(documentID, runID, cardType string) (*core.Formatting, error) {
	ct, err := parseCardType(cardType)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return nil, err
	}
	return p.anki.GetFormatting(documentID, analysis.ID, ct)
}

// ReadDeck returns the formatted deck text for one card type.
func (p *Pipeline) ReadDeck(documentID, runID, cardType string) (string, error) {
	ct, err := parseCardType(cardType)
	if err != nil {
		return "", err
	}
	analysis, err := p.resolveRun(documentID, runID)
	if err != nil {
		return "", err
	}
	return p.anki.ReadDeck(documentID, analysis.ID, ct)
}

func parseCardType(cardType string) (core.CardType, error) {
	if !core.IsValidCardType(cardType) {
		return "", core.ErrValidation(core.CodeInvalidCardType, "unknown card type: "+cardType)
	}
	return core.CardType(cardType), nil
}
