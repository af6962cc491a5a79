// Package service implements the five pipeline stages. All stages share
// one template: validate preconditions, resolve the upstream record,
// compute the resume set from the tracking ledger, loop over modules
// driving the gateway and extractor, and persist metadata. Gateway errors
// abort the stage; any other per-module error marks that module failed and
// the loop continues.
package service

import (
	"context"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
)

// Stage names recorded in tracking ledgers.
const (
	StageAnalyze     = "analyze"
	StageRestructure = "restructure"
	StageGenerate    = "generate"
	StageOptimize    = "optimize"
	StageFormat      = "format"
)

const (
	// defaultBackoff is used when the usage introspection gives no reset
	// hint after a rate limit.
	defaultBackoff = 300 * time.Second
	// backoffSlack is added on top of a parsed reset hint.
	backoffSlack = 10 * time.Second
)

// Pipeline wires the five stage services over shared ports.
type Pipeline struct {
	gateway   core.Gateway
	prompts   core.PromptRepository
	documents core.DocumentRepository
	analyses  core.AnalysisStore
	items     core.RestructuredStore
	cards     core.CardStore
	anki      core.AnkiStore
	logger    *logging.Logger

	// sleep is swapped out in tests so backoff does not stall them.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates the pipeline over its ports.
func New(
	gateway core.Gateway,
	prompts core.PromptRepository,
	documents core.DocumentRepository,
	analyses core.AnalysisStore,
	items core.RestructuredStore,
	cards core.CardStore,
	anki core.AnkiStore,
	logger *logging.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		gateway:   gateway,
		prompts:   prompts,
		documents: documents,
		analyses:  analyses,
		items:     items,
		cards:     cards,
		anki:      anki,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay asks the gateway for a reset hint after a rate limit. An
// unparseable or missing hint falls back to the fixed default.
func (p *Pipeline) backoffDelay(ctx context.Context) time.Duration {
	report, err := p.gateway.Usage(ctx)
	if err != nil || report == nil || report.ResetAfter <= 0 {
		return defaultBackoff
	}
	return report.ResetAfter + backoffSlack
}

// resolveRun resolves the analysis run a stage operates against. An empty
// runID goes through the document's latest pointer.
func (p *Pipeline) resolveRun(documentID, runID string) (*core.Analysis, error) {
	return p.analyses.Get(documentID, runID)
}

// AvailableModules returns the content module enumeration.
func (p *Pipeline) AvailableModules() []core.ContentModule {
	return core.AllModules()
}
