package core

import (
	"context"
	"time"
)

// Session is the reusable handle to the external reasoning process's
// conversational state. It is an explicit value passed into and returned
// from every gateway call, never hidden adapter state, so resumption is
// testable with an injected token. A session is bound to one attachment;
// targeting a different attachment discards it.
type Session struct {
	ID             string `json:"id"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

// IsZero reports whether no session has been established yet.
func (s Session) IsZero() bool {
	return s.ID == ""
}

// GatewayRequest is one call to the external reasoning engine.
type GatewayRequest struct {
	Prompt         string
	System         string
	AttachmentPath string // optional document to load into context
	Session        Session
	Timeout        time.Duration // zero means the adapter default
}

// GatewayResponse carries the raw response text and the session to use on
// the next call against the same attachment.
type GatewayResponse struct {
	Text    string
	Session Session
}

// Gateway sends prompts to an external long-running reasoning process.
// Implementations surface every failure mode (binary missing, non-zero
// exit, timeout, empty response) as a gateway-category DomainError, with
// rate-limit-shaped failures classified as ErrCatRateLimit.
type Gateway interface {
	Send(ctx context.Context, req GatewayRequest) (*GatewayResponse, error)

	// Usage queries remaining-quota and reset hints, for rate-limit
	// backoff. Adapters without introspection return an empty report.
	Usage(ctx context.Context) (*UsageReport, error)
}

// UsageReport is the gateway's quota introspection result.
type UsageReport struct {
	Raw        string        `json:"raw"`
	ResetAfter time.Duration `json:"reset_after"` // zero when unparseable
}

// PromptRepository resolves instruction text for a specialist. A specialist
// id may contain a subpath (e.g. "generator/basic"). Missing prompts
// surface as prompt_missing errors.
type PromptRepository interface {
	SystemPrompt(specialistID string) (string, error)
	ModulePrompt(specialistID, moduleID string) (string, error)
}

// DocumentRepository is the persistent id -> path index of source files.
type DocumentRepository interface {
	Register(path string) (*Document, error)
	Get(id string) (*Document, error)
	FindByPath(path string) (*Document, error)
	List() ([]*Document, error)
	Delete(id string) error
}

// AnalysisStore persists stage-1 output and owns the latest pointer.
type AnalysisStore interface {
	Save(a *Analysis) error
	Get(documentID string, runID string) (*Analysis, error) // empty runID resolves latest
	FindByID(analysisID string) (*Analysis, error)
	LatestRunID(documentID string) (string, error)
	List(documentID string) ([]*Analysis, error)
	Delete(documentID, runID string) (bool, error)
}

// RestructuredStore persists stage-2 metadata, items and ledger.
type RestructuredStore interface {
	SaveMetadata(r *Restructuration) error
	SaveItem(documentID, runID string, module ContentModule, index int, item map[string]interface{}) error
	GetMetadata(documentID, runID string) (*Restructuration, error)
	FindByID(id string) (*Restructuration, error)
	ListItems(documentID, runID string, module ContentModule) ([]map[string]interface{}, error)
	SaveTracking(documentID, runID string, t *Tracking) error
	GetTracking(documentID, runID string) (*Tracking, error)
	Delete(documentID, runID string) (bool, error)
}

// CardStore persists stage-3 and stage-4 output. Optimized selects the
// stage-4 namespace under cards/optimized.
type CardStore interface {
	SaveGeneration(g *Generation) error
	SaveOptimization(o *Optimization) error
	SaveCard(documentID, runID string, ct CardType, module ContentModule, index int, card Card, optimized bool) error
	GetGeneration(documentID, runID string, ct CardType) (*Generation, error)
	GetOptimization(documentID, runID string, ct CardType) (*Optimization, error)
	FindGenerationByID(id string) (*Generation, error)
	FindOptimizationByID(id string) (*Optimization, error)
	ListCards(documentID, runID string, ct CardType, module ContentModule, optimized bool) ([]Card, error)
	SaveTracking(documentID, runID string, ct CardType, t *Tracking, optimized bool) error
	GetTracking(documentID, runID string, ct CardType, optimized bool) (*Tracking, error)
	Delete(documentID, runID string, ct CardType, optimized bool) (bool, error)
}

// AnkiStore persists stage-5 metadata plus the flat deck file.
type AnkiStore interface {
	SaveFormatting(f *Formatting, deck string) error
	GetFormatting(documentID, runID string, ct CardType) (*Formatting, error)
	FindByID(id string) (*Formatting, error)
	ReadDeck(documentID, runID string, ct CardType) (string, error)
	DeckPath(documentID, runID string, ct CardType) string
	Delete(documentID, runID string, ct CardType) (bool, error)
}
