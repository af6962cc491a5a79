package storage

import (
	"encoding/json"
	"strings"

	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/core"
)

// AnkiStore persists stage-5 output: the formatting metadata and the flat
// importable deck file next to it.
type AnkiStore struct {
	store blobstore.Store
}

// NewAnkiStore creates the store.
func NewAnkiStore(store blobstore.Store) *AnkiStore {
	return &AnkiStore{store: store}
}

var _ core.AnkiStore = (*AnkiStore)(nil)

// SaveFormatting writes the metadata record and the deck text together.
func (s *AnkiStore) SaveFormatting(f *core.Formatting, deck string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := s.store.Put(formattingKey(f.DocumentID, f.AnalysisID, f.CardType), data); err != nil {
		return err
	}
	return s.store.Put(deckKey(f.DocumentID, f.AnalysisID, f.CardType), []byte(deck))
}

// GetFormatting reads the stage-5 metadata for a run and card type.
func (s *AnkiStore) GetFormatting(documentID, runID string, ct core.CardType) (*core.Formatting, error) {
	data, err := s.store.Get(formattingKey(documentID, runID, ct))
	if blobstore.IsNotFound(err) {
		return nil, core.ErrNotFound("formatting", documentID+"/"+runID+"/"+string(ct))
	}
	if err != nil {
		return nil, err
	}
	var f core.Formatting
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, core.ErrInternal("formatting record is corrupt").WithCause(err)
	}
	return &f, nil
}

// FindByID scans all runs for the formatting with this id.
func (s *AnkiStore) FindByID(id string) (*core.Formatting, error) {
	keys, err := s.store.ScanPrefix("")
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		base := key[strings.LastIndex(key, "/")+1:]
		if !strings.HasPrefix(base, formattingTag+"-") || !strings.HasSuffix(base, ".json") {
			continue
		}
		data, err := s.store.Get(key)
		if err != nil {
			return nil, err
		}
		var f core.Formatting
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.ID == id {
			return &f, nil
		}
	}
	return nil, core.ErrNotFound("formatting", id)
}

// ReadDeck returns the deck file content.
func (s *AnkiStore) ReadDeck(documentID, runID string, ct core.CardType) (string, error) {
	data, err := s.store.Get(deckKey(documentID, runID, ct))
	if blobstore.IsNotFound(err) {
		return "", core.ErrNotFound("deck", documentID+"/"+runID+"/"+string(ct))
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeckPath returns the store key of the deck file, reported to users as the
// import target.
func (s *AnkiStore) DeckPath(documentID, runID string, ct core.CardType) string {
	return deckKey(documentID, runID, ct)
}

// Delete removes the formatting metadata and the deck for one card type.
func (s *AnkiStore) Delete(documentID, runID string, ct core.CardType) (bool, error) {
	existed, err := s.store.Exists(formattingKey(documentID, runID, ct))
	if err != nil {
		return false, err
	}
	if err := s.store.Delete(formattingKey(documentID, runID, ct)); err != nil {
		return false, err
	}
	if err := s.store.Delete(deckKey(documentID, runID, ct)); err != nil {
		return false, err
	}
	return existed, nil
}
