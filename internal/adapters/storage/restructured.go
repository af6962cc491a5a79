package storage

import (
	"encoding/json"
	"strings"

	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/core"
)

// RestructuredStore persists stage-2 output: the run metadata, the progress
// ledger, and one JSON file per structured item under the item's module
// directory.
type RestructuredStore struct {
	store blobstore.Store
}

// NewRestructuredStore creates the store.
func NewRestructuredStore(store blobstore.Store) *RestructuredStore {
	return &RestructuredStore{store: store}
}

var _ core.RestructuredStore = (*RestructuredStore)(nil)

// SaveMetadata writes the restructuration record into its run partition.
func (s *RestructuredStore) SaveMetadata(r *core.Restructuration) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(restructKey(r.DocumentID, r.AnalysisID), data)
}

// SaveItem writes one structured item, 1-based within its module.
func (s *RestructuredStore) SaveItem(documentID, runID string, module core.ContentModule, index int, item map[string]interface{}) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(itemKey(documentID, runID, module, index), data)
}

// GetMetadata reads the restructuration record for a run.
func (s *RestructuredStore) GetMetadata(documentID, runID string) (*core.Restructuration, error) {
	data, err := s.store.Get(restructKey(documentID, runID))
	if blobstore.IsNotFound(err) {
		return nil, core.ErrNotFound("restructuration", documentID+"/"+runID)
	}
	if err != nil {
		return nil, err
	}
	var r core.Restructuration
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, core.ErrInternal("restructuration record is corrupt").WithCause(err)
	}
	return &r, nil
}

// FindByID scans all runs for the restructuration with this id.
func (s *RestructuredStore) FindByID(id string) (*core.Restructuration, error) {
	keys, err := s.store.ScanPrefix("")
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if !strings.HasSuffix(key, "/"+restructFile) {
			continue
		}
		data, err := s.store.Get(key)
		if err != nil {
			return nil, err
		}
		var r core.Restructuration
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, core.ErrNotFound("restructuration", id)
}

// ListItems reads every stored item of a module in file order.
func (s *RestructuredStore) ListItems(documentID, runID string, module core.ContentModule) ([]map[string]interface{}, error) {
	keys, err := s.store.ScanPrefix(moduleItemsPrefix(documentID, runID, module))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := s.store.Get(key)
		if err != nil {
			return nil, err
		}
		var item map[string]interface{}
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, core.ErrInternal("restructured item is corrupt: " + key).WithCause(err)
		}
		items = append(items, item)
	}
	return items, nil
}

// SaveTracking persists the stage-2 ledger.
func (s *RestructuredStore) SaveTracking(documentID, runID string, t *core.Tracking) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(restructTrackingKey(documentID, runID), data)
}

// GetTracking reads the stage-2 ledger, nil when none was written yet.
func (s *RestructuredStore) GetTracking(documentID, runID string) (*core.Tracking, error) {
	data, err := s.store.Get(restructTrackingKey(documentID, runID))
	if blobstore.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t core.Tracking
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, core.ErrInternal("tracking record is corrupt").WithCause(err)
	}
	return &t, nil
}

// Delete removes the restructuration metadata, ledger and every module item
// while leaving the analysis record and downstream card output alone.
func (s *RestructuredStore) Delete(documentID, runID string) (bool, error) {
	existed, err := s.store.Exists(restructKey(documentID, runID))
	if err != nil {
		return false, err
	}
	if err := s.store.Delete(restructKey(documentID, runID)); err != nil {
		return false, err
	}
	if err := s.store.Delete(restructTrackingKey(documentID, runID)); err != nil {
		return false, err
	}
	for _, module := range core.AllModules() {
		removed, err := s.store.DeletePrefix(moduleItemsPrefix(documentID, runID, module))
		if err != nil {
			return existed, err
		}
		existed = existed || removed
	}
	return existed, nil
}
