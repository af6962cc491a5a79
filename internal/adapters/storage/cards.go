package storage

import (
	"encoding/json"
	"strings"

	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/core"
)

// CardStore persists stage-3 and stage-4 output. Both stages share the card
// file layout; the optimized flag selects the cards/optimized namespace so a
// raw generation and its optimized counterpart coexist under one run.
type CardStore struct {
	store blobstore.Store
}

// NewCardStore creates the store.
func NewCardStore(store blobstore.Store) *CardStore {
	return &CardStore{store: store}
}

var _ core.CardStore = (*CardStore)(nil)

// SaveGeneration writes the stage-3 metadata record.
func (s *CardStore) SaveGeneration(g *core.Generation) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(generationKey(g.DocumentID, g.AnalysisID, g.CardType), data)
}

// SaveOptimization writes the stage-4 metadata record.
func (s *CardStore) SaveOptimization(o *core.Optimization) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(optimizationKey(o.DocumentID, o.AnalysisID, o.CardType), data)
}

// SaveCard writes one card, 1-based within its module.
func (s *CardStore) SaveCard(documentID, runID string, ct core.CardType, module core.ContentModule, index int, card core.Card, optimized bool) error {
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(cardKey(documentID, runID, ct, module, index, optimized), data)
}

// GetGeneration reads the stage-3 metadata for a run and card type.
func (s *CardStore) GetGeneration(documentID, runID string, ct core.CardType) (*core.Generation, error) {
	data, err := s.store.Get(generationKey(documentID, runID, ct))
	if blobstore.IsNotFound(err) {
		return nil, core.ErrNotFound("generation", documentID+"/"+runID+"/"+string(ct))
	}
	if err != nil {
		return nil, err
	}
	var g core.Generation
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, core.ErrInternal("generation record is corrupt").WithCause(err)
	}
	return &g, nil
}

// GetOptimization reads the stage-4 metadata for a run and card type.
func (s *CardStore) GetOptimization(documentID, runID string, ct core.CardType) (*core.Optimization, error) {
	data, err := s.store.Get(optimizationKey(documentID, runID, ct))
	if blobstore.IsNotFound(err) {
		return nil, core.ErrNotFound("optimization", documentID+"/"+runID+"/"+string(ct))
	}
	if err != nil {
		return nil, err
	}
	var o core.Optimization
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, core.ErrInternal("optimization record is corrupt").WithCause(err)
	}
	return &o, nil
}

// FindGenerationByID scans all runs for the generation with this id.
func (s *CardStore) FindGenerationByID(id string) (*core.Generation, error) {
	var found *core.Generation
	err := s.scanMetadata("generation-", func(data []byte) (bool, error) {
		var g core.Generation
		if err := json.Unmarshal(data, &g); err != nil {
			return false, nil
		}
		if g.ID == id {
			found = &g
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, core.ErrNotFound("generation", id)
	}
	return found, nil
}

// FindOptimizationByID scans all runs for the optimization with this id.
func (s *CardStore) FindOptimizationByID(id string) (*core.Optimization, error) {
	var found *core.Optimization
	err := s.scanMetadata("optimization-", func(data []byte) (bool, error) {
		var o core.Optimization
		if err := json.Unmarshal(data, &o); err != nil {
			return false, nil
		}
		if o.ID == id {
			found = &o
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, core.ErrNotFound("optimization", id)
	}
	return found, nil
}

func (s *CardStore) scanMetadata(filePrefix string, visit func(data []byte) (bool, error)) error {
	keys, err := s.store.ScanPrefix("")
	if err != nil {
		return err
	}
	for _, key := range keys {
		base := key[strings.LastIndex(key, "/")+1:]
		if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, ".json") {
			continue
		}
		data, err := s.store.Get(key)
		if err != nil {
			return err
		}
		done, err := visit(data)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

// ListCards reads every stored card of a module in file order.
func (s *CardStore) ListCards(documentID, runID string, ct core.CardType, module core.ContentModule, optimized bool) ([]core.Card, error) {
	keys, err := s.store.ScanPrefix(cardsPrefix(documentID, runID, ct, module, optimized))
	if err != nil {
		return nil, err
	}
	cards := make([]core.Card, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := s.store.Get(key)
		if err != nil {
			return nil, err
		}
		var card core.Card
		if err := json.Unmarshal(data, &card); err != nil {
			return nil, core.ErrInternal("card record is corrupt: " + key).WithCause(err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// SaveTracking persists the stage ledger for a card type.
func (s *CardStore) SaveTracking(documentID, runID string, ct core.CardType, t *core.Tracking, optimized bool) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return s.store.Put(cardsTrackingKey(documentID, runID, ct, optimized), data)
}

// GetTracking reads the stage ledger, nil when none was written yet.
func (s *CardStore) GetTracking(documentID, runID string, ct core.CardType, optimized bool) (*core.Tracking, error) {
	data, err := s.store.Get(cardsTrackingKey(documentID, runID, ct, optimized))
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

// Delete removes the stage metadata, ledger and cards for one card type.
func (s *CardStore) Delete(documentID, runID string, ct core.CardType, optimized bool) (bool, error) {
	metaKey := generationKey(documentID, runID, ct)
	if optimized {
		metaKey = optimizationKey(documentID, runID, ct)
	}
	existed, err := s.store.Exists(metaKey)
	if err != nil {
		return false, err
	}
	if err := s.store.Delete(metaKey); err != nil {
		return false, err
	}
	if err := s.store.Delete(cardsTrackingKey(documentID, runID, ct, optimized)); err != nil {
		return false, err
	}
	for _, module := range core.AllModules() {
		removed, err := s.store.DeletePrefix(cardsPrefix(documentID, runID, ct, module, optimized))
		if err != nil {
			return existed, err
		}
		existed = existed || removed
	}
	return existed, nil
}
