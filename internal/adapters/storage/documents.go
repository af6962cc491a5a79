package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/core"
)

// DocumentRepository is the persistent id -> path index, stored as a single
// JSON blob. Registration is idempotent on the absolute path: re-registering
// a known file refreshes its size but keeps its id stable.
type DocumentRepository struct {
	store      blobstore.Store
	sourcesDir string

	mu sync.Mutex
}

// NewDocumentRepository creates the index over the given store. sourcesDir
// anchors the relative names documents are listed under.
func NewDocumentRepository(store blobstore.Store, sourcesDir string) *DocumentRepository {
	return &DocumentRepository{store: store, sourcesDir: sourcesDir}
}

var _ core.DocumentRepository = (*DocumentRepository)(nil)

// Register adds a source file to the index, or returns the existing record
// when the path is already known.
func (r *DocumentRepository) Register(path string) (*core.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidPdf, "cannot resolve path: "+path).WithCause(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, core.ErrNotFound("source file", abs).WithCause(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.load()
	if err != nil {
		return nil, err
	}
	if existing := index.byPath(abs); existing != nil {
		existing.Size = info.Size()
		if err := r.save(index); err != nil {
			return nil, err
		}
		return existing, nil
	}

	doc := &core.Document{
		ID:        core.NewID(),
		Name:      core.DocumentName(r.sourcesDir, abs),
		Path:      abs,
		Size:      info.Size(),
		CreatedAt: time.Now().UTC(),
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	index.Documents[doc.ID] = doc
	if err := r.save(index); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns the document with the given id.
func (r *DocumentRepository) Get(id string) (*core.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.load()
	if err != nil {
		return nil, err
	}
	doc, ok := index.Documents[id]
	if !ok {
		return nil, core.ErrNotFound("document", id)
	}
	return doc, nil
}

// FindByPath returns the document registered for path, if any.
func (r *DocumentRepository) FindByPath(path string) (*core.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidPdf, "cannot resolve path: "+path).WithCause(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.load()
	if err != nil {
		return nil, err
	}
	doc := index.byPath(abs)
	if doc == nil {
		return nil, core.ErrNotFound("document", abs)
	}
	return doc, nil
}

// List returns every registered document sorted by name.
func (r *DocumentRepository) List() ([]*core.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.load()
	if err != nil {
		return nil, err
	}
	docs := make([]*core.Document, 0, len(index.Documents))
	for _, d := range index.Documents {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Delete removes a document from the index. Stage outputs under the
// document's partition are left for the caller to clean up.
func (r *DocumentRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := index.Documents[id]; !ok {
		return core.ErrNotFound("document", id)
	}
	delete(index.Documents, id)
	return r.save(index)
}

type documentIndex struct {
	Documents map[string]*core.Document `json:"documents"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

func (i *documentIndex) byPath(abs string) *core.Document {
	for _, d := range i.Documents {
		if d.Path == abs {
			return d
		}
	}
	return nil
}

func (r *DocumentRepository) load() (*documentIndex, error) {
	data, err := r.store.Get(indexKey)
	if blobstore.IsNotFound(err) {
		return &documentIndex{Documents: map[string]*core.Document{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var index documentIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, core.ErrInternal("document index is corrupt").WithCause(err)
	}
	if index.Documents == nil {
		index.Documents = map[string]*core.Document{}
	}
	return &index, nil
}

func (r *DocumentRepository) save(index *documentIndex) error {
	index.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return r.store.Put(indexKey, data)
}
