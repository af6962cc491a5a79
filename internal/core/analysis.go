package core

import (
	"math"
	"strings"
	"time"
)

// clockSkewTolerance is how far in the future a timestamp may sit before
// validation rejects it.
const clockSkewTolerance = time.Minute

// Analysis is the output of the first pipeline stage: the set of content
// modules detected in a document. Its id doubles as the storage partition
// for everything derived from this run.
type Analysis struct {
	ID              string          `json:"id"`
	DocumentID      string          `json:"document_id"`
	DetectedModules []ContentModule `json:"detected_modules"`
	AnalyzedAt      time.Time       `json:"analyzed_at"`
}

// NewAnalysis builds an analysis record with a fresh id.
func NewAnalysis(documentID string, modules []ContentModule) *Analysis {
	return &Analysis{
		ID:              NewID(),
		DocumentID:      documentID,
		DetectedModules: modules,
		AnalyzedAt:      time.Now().UTC(),
	}
}

// Validate checks analysis invariants: non-empty ids, every module drawn
// from the fixed enumeration, timestamp not in the future.
func (a *Analysis) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrValidation(CodeEmptyID, "analysis id cannot be empty")
	}
	if strings.TrimSpace(a.DocumentID) == "" {
		return ErrValidation(CodeEmptyID, "analysis document id cannot be empty")
	}
	for _, m := range a.DetectedModules {
		if !IsValidModule(string(m)) {
			return ErrValidation(CodeInvalidModule, "unknown content module: "+string(m))
		}
	}
	if a.AnalyzedAt.After(time.Now().Add(clockSkewTolerance)) {
		return ErrValidation(CodeFutureTimestamp, "analysis timestamp is in the future")
	}
	return nil
}

// Restructuration is the output of the second stage: per-module structured
// items extracted from the document. Item payloads are module-specific and
// passed through opaquely.
type Restructuration struct {
	ID               string          `json:"id"`
	AnalysisID       string          `json:"analysis_id"`
	DocumentID       string          `json:"document_id"`
	ModulesProcessed []ContentModule `json:"modules_processed"`
	ItemsCount       map[string]int  `json:"items_count"`
	RestructuredAt   time.Time       `json:"restructured_at"`
}

// Optimization is the output of the fourth stage.
type Optimization struct {
	ID                string                 `json:"id"`
	GenerationID      string                 `json:"generation_id"`
	AnalysisID        string                 `json:"analysis_id"`
	DocumentID        string                 `json:"document_id"`
	CardType          CardType               `json:"card_type"`
	ModulesProcessed  []ContentModule        `json:"modules_processed"`
	ModulesStats      map[string]ModuleStats `json:"modules_stats"`
	CardsInput        int                    `json:"cards_input"`
	CardsOutput       int                    `json:"cards_output"`
	OptimizationRatio float64                `json:"optimization_ratio"`
	OptimizedAt       time.Time              `json:"optimized_at"`
}

// ModuleStats records the per-module outcome of an optimization pass.
type ModuleStats struct {
	Input       int    `json:"input"`
	Output      int    `json:"output"`
	ContentType string `json:"content_type"`
}

// OptimizationRatio computes output/input rounded to two decimals, zero
// when there was no input.
func OptimizationRatio(input, output int) float64 {
	if input == 0 {
		return 0
	}
	return math.Round(float64(output)/float64(input)*100) / 100
}

// Formatting is the output of the fifth stage: a flat importable deck file.
type Formatting struct {
	ID             string    `json:"id"`
	OptimizationID string    `json:"optimization_id"`
	AnalysisID     string    `json:"analysis_id"`
	DocumentID     string    `json:"document_id"`
	CardType       CardType  `json:"card_type"`
	CardsCount     int       `json:"cards_count"`
	OutputFile     string    `json:"output_file"`
	FormattedAt    time.Time `json:"formatted_at"`
}
