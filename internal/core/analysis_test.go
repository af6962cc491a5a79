package core

import (
	"errors"
	"testing"
	"time"
)

func TestAnalysis_Validate(t *testing.T) {
	valid := NewAnalysis("doc1", []ContentModule{ModuleThemes, ModuleVocabulary})
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Analysis)
		code   string
	}{
		{"empty id", func(a *Analysis) { a.ID = " " }, CodeEmptyID},
		{"empty document id", func(a *Analysis) { a.DocumentID = "" }, CodeEmptyID},
		{"unknown module", func(a *Analysis) { a.DetectedModules = []ContentModule{"recipes"} }, CodeInvalidModule},
		{"future timestamp", func(a *Analysis) { a.AnalyzedAt = time.Now().Add(time.Hour) }, CodeFutureTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalysis("doc1", []ContentModule{ModuleThemes})
			tt.mutate(a)
			err := a.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var de *DomainError
			if !errors.As(err, &de) || de.Code != tt.code {
				t.Fatalf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestAnalysis_ValidateToleratesSmallSkew(t *testing.T) {
	a := NewAnalysis("doc1", []ContentModule{ModuleThemes})
	a.AnalyzedAt = time.Now().Add(30 * time.Second)
	if err := a.Validate(); err != nil {
		t.Fatalf("30s of clock skew must be tolerated, got %v", err)
	}
}

func TestOptimizationRatio(t *testing.T) {
	tests := []struct {
		input, output int
		want          float64
	}{
		{50, 62, 1.24},
		{0, 10, 0},
		{0, 0, 0},
		{10, 10, 1},
		{3, 1, 0.33},
	}
	for _, tt := range tests {
		if got := OptimizationRatio(tt.input, tt.output); got != tt.want {
			t.Fatalf("OptimizationRatio(%d, %d) = %v, want %v", tt.input, tt.output, got, tt.want)
		}
	}
}
