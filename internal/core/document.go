package core

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is an immutable reference to a source file. The id is assigned
// the first time a path is observed and persisted in the document index, so
// it survives re-registration of the same relative path.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"` // relative path without extension
	Path      string    `json:"path"` // absolute path on disk
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID returns a short random identifier, used for documents and every
// stage output record.
func NewID() string {
	return uuid.NewString()[:12]
}

// DocumentName derives the index key for a source path relative to the
// sources root: the relative path with its extension stripped.
func DocumentName(sourcesDir, path string) string {
	rel, err := filepath.Rel(sourcesDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// Validate checks document invariants.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrValidation(CodeEmptyID, "document id cannot be empty")
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrValidation("EMPTY_NAME", "document name cannot be empty")
	}
	if !strings.EqualFold(filepath.Ext(d.Path), ".pdf") {
		return ErrValidation(CodeInvalidPdf, "document is not a PDF: "+d.Path)
	}
	return nil
}
