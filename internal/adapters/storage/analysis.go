package storage

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/core"
)

// AnalysisStore persists stage-1 output. Each analysis id doubles as the run
// partition under the document, and latest.json records which run downstream
// stages resolve when called without an explicit run id. Only a fresh
// analysis advances the pointer.
type AnalysisStore struct {
	store blobstore.Store
}

// NewAnalysisStore creates the store.
func NewAnalysisStore(store blobstore.Store) *AnalysisStore {
	return &AnalysisStore{store: store}
}

var _ core.AnalysisStore = (*AnalysisStore)(nil)

type latestPointer struct {
	AnalysisID string    `json:"latest_analysis_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Save writes the analysis and advances the document's latest pointer.
func (s *AnalysisStore) Save(a *core.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	if err := s.store.Put(analysisKey(a.DocumentID, a.ID), data); err != nil {
		return err
	}
	ptr, err := json.MarshalIndent(latestPointer{AnalysisID: a.ID, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(latestKey(a.DocumentID), ptr)
}

// Get returns the analysis for the given run, resolving the latest pointer
// when runID is empty.
func (s *AnalysisStore) Get(documentID, runID string) (*core.Analysis, error) {
	if runID == "" {
		latest, err := s.LatestRunID(documentID)
		if err != nil {
			return nil, err
		}
		runID = latest
	}
	data, err := s.store.Get(analysisKey(documentID, runID))
	if blobstore.IsNotFound(err) {
		return nil, core.ErrNotFound("analysis", documentID+"/"+runID)
	}
	if err != nil {
		return nil, err
	}
	var a core.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, core.ErrInternal("analysis record is corrupt").WithCause(err)
	}
	return &a, nil
}

// FindByID scans every document partition for the analysis with this id.
func (s *AnalysisStore) FindByID(analysisID string) (*core.Analysis, error) {
	keys, err := s.store.ScanPrefix("")
	if err != nil {
		return nil, err
	}
	suffix := "/" + analysisID + "/" + analysisFile
	for _, key := range keys {
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		data, err := s.store.Get(key)
		if err != nil {
			return nil, err
		}
		var a core.Analysis
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, core.ErrInternal("analysis record is corrupt").WithCause(err)
		}
		return &a, nil
	}
	return nil, core.ErrNotFound("analysis", analysisID)
}

// LatestRunID reads the document's latest pointer.
func (s *AnalysisStore) LatestRunID(documentID string) (string, error) {
	data, err := s.store.Get(latestKey(documentID))
	if blobstore.IsNotFound(err) {
		return "", core.ErrNotFound("analysis", documentID)
	}
	if err != nil {
		return "", err
	}
	var ptr latestPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return "", core.ErrInternal("latest pointer is corrupt").WithCause(err)
	}
	if ptr.AnalysisID == "" {
		return "", core.ErrNotFound("analysis", documentID)
	}
	return ptr.AnalysisID, nil
}

// List returns every analysis stored under the document, newest first.
func (s *AnalysisStore) List(documentID string) ([]*core.Analysis, error) {
	keys, err := s.store.ScanPrefix(documentID)
	if err != nil {
		return nil, err
	}
	var out []*core.Analysis
	for _, key := range keys {
		if !strings.HasSuffix(key, "/"+analysisFile) {
			continue
		}
		data, err := s.store.Get(key)
		if err != nil {
			return nil, err
		}
		var a core.Analysis
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, core.ErrInternal("analysis record is corrupt").WithCause(err)
		}
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnalyzedAt.After(out[j].AnalyzedAt) })
	return out, nil
}

// Delete removes the whole run partition, every stage output included. The
// latest pointer is cleared when it named the deleted run.
func (s *AnalysisStore) Delete(documentID, runID string) (bool, error) {
	existed, err := s.store.DeletePrefix(runKey(documentID, runID))
	if err != nil {
		return false, err
	}
	latest, lerr := s.LatestRunID(documentID)
	if lerr == nil && latest == runID {
		if err := s.store.Delete(latestKey(documentID)); err != nil {
			return existed, err
		}
	}
	return existed, nil
}
