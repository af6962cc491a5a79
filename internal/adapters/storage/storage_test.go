package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/core"
)

func newBlobstore(t *testing.T) blobstore.Store {
	t.Helper()
	store, err := blobstore.NewFS(t.TempDir())
	require.NoError(t, err)
	return store
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o600))
	return path
}

func TestDocumentRepository_RegisterIsIdempotentOnPath(t *testing.T) {
	sources := t.TempDir()
	repo := NewDocumentRepository(newBlobstore(t), sources)
	path := writePDF(t, sources, "bio/cells.pdf")

	first, err := repo.Register(path)
	require.NoError(t, err)
	assert.Equal(t, "bio/cells", first.Name)
	assert.Len(t, first.ID, 12)

	second, err := repo.Register(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-registering the same path must keep the id")

	docs, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentRepository_GetAndFindByPath(t *testing.T) {
	sources := t.TempDir()
	repo := NewDocumentRepository(newBlobstore(t), sources)
	path := writePDF(t, sources, "notes.pdf")

	doc, err := repo.Register(path)
	require.NoError(t, err)

	got, err := repo.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Path, got.Path)

	byPath, err := repo.FindByPath(path)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, byPath.ID)

	_, err = repo.Get("missing")
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestDocumentRepository_RegisterMissingFile(t *testing.T) {
	repo := NewDocumentRepository(newBlobstore(t), t.TempDir())
	_, err := repo.Register("/nonexistent/file.pdf")
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestDocumentRepository_Delete(t *testing.T) {
	sources := t.TempDir()
	repo := NewDocumentRepository(newBlobstore(t), sources)
	doc, err := repo.Register(writePDF(t, sources, "a.pdf"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(doc.ID))
	_, err = repo.Get(doc.ID)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
	assert.Error(t, repo.Delete(doc.ID))
}

func TestAnalysisStore_SaveAdvancesLatest(t *testing.T) {
	store := NewAnalysisStore(newBlobstore(t))

	first := core.NewAnalysis("doc1", []core.ContentModule{core.ModuleThemes})
	require.NoError(t, store.Save(first))

	latest, err := store.LatestRunID("doc1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest)

	second := core.NewAnalysis("doc1", []core.ContentModule{core.ModuleThemes, core.ModuleVocabulary})
	require.NoError(t, store.Save(second))

	latest, err = store.LatestRunID("doc1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest, "a fresh analysis must advance the pointer")

	// empty run id resolves through the pointer
	got, err := store.Get("doc1", "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	// the earlier run stays addressable explicitly
	got, err = store.Get("doc1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestAnalysisStore_FindByIDAndList(t *testing.T) {
	store := NewAnalysisStore(newBlobstore(t))

	a1 := core.NewAnalysis("doc1", []core.ContentModule{core.ModuleThemes})
	a1.AnalyzedAt = time.Now().UTC().Add(-time.Hour)
	a2 := core.NewAnalysis("doc1", []core.ContentModule{core.ModuleTables})
	require.NoError(t, store.Save(a1))
	require.NoError(t, store.Save(a2))

	found, err := store.FindByID(a1.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc1", found.DocumentID)

	list, err := store.List("doc1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a2.ID, list[0].ID, "list is newest first")

	_, err = store.FindByID("nope")
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestAnalysisStore_DeleteClearsPointer(t *testing.T) {
	store := NewAnalysisStore(newBlobstore(t))
	a := core.NewAnalysis("doc1", []core.ContentModule{core.ModuleThemes})
	require.NoError(t, store.Save(a))

	existed, err := store.Delete("doc1", a.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = store.LatestRunID("doc1")
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))

	existed, err = store.Delete("doc1", a.ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRestructuredStore_RoundTrip(t *testing.T) {
	store := NewRestructuredStore(newBlobstore(t))

	r := &core.Restructuration{
		ID:               core.NewID(),
		AnalysisID:       "run1",
		DocumentID:       "doc1",
		ModulesProcessed: []core.ContentModule{core.ModuleThemes},
		ItemsCount:       map[string]int{"themes": 2},
		RestructuredAt:   time.Now().UTC(),
	}
	require.NoError(t, store.SaveMetadata(r))
	require.NoError(t, store.SaveItem("doc1", "run1", core.ModuleThemes, 1, map[string]interface{}{"title": "Mitosis"}))
	require.NoError(t, store.SaveItem("doc1", "run1", core.ModuleThemes, 2, map[string]interface{}{"title": "Meiosis"}))

	got, err := store.GetMetadata("doc1", "run1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	byID, err := store.FindByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc1", byID.DocumentID)

	items, err := store.ListItems("doc1", "run1", core.ModuleThemes)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Mitosis", items[0]["title"])

	empty, err := store.ListItems("doc1", "run1", core.ModuleTables)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRestructuredStore_TrackingLifecycle(t *testing.T) {
	store := NewRestructuredStore(newBlobstore(t))

	got, err := store.GetTracking("doc1", "run1")
	require.NoError(t, err)
	assert.Nil(t, got, "no ledger before the stage ran")

	tr := core.NewTracking("run1", "doc1", "restructure", []core.ContentModule{core.ModuleThemes})
	tr.MarkInProgress(core.ModuleThemes)
	tr.MarkCompleted(core.ModuleThemes, 3)
	require.NoError(t, store.SaveTracking("doc1", "run1", tr))

	got, err = store.GetTracking("doc1", "run1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, core.StatusCompleted, got.Status())
	assert.Equal(t, 3, got.Modules["themes"].Count)
}

func TestRestructuredStore_Delete(t *testing.T) {
	store := NewRestructuredStore(newBlobstore(t))
	r := &core.Restructuration{ID: core.NewID(), AnalysisID: "run1", DocumentID: "doc1", RestructuredAt: time.Now().UTC()}
	require.NoError(t, store.SaveMetadata(r))
	require.NoError(t, store.SaveItem("doc1", "run1", core.ModuleThemes, 1, map[string]interface{}{"k": "v"}))

	existed, err := store.Delete("doc1", "run1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = store.GetMetadata("doc1", "run1")
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
	items, err := store.ListItems("doc1", "run1", core.ModuleThemes)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCardStore_GenerationRoundTrip(t *testing.T) {
	store := NewCardStore(newBlobstore(t))

	g := &core.Generation{
		ID:                core.NewID(),
		RestructurationID: "r1",
		AnalysisID:        "run1",
		DocumentID:        "doc1",
		CardType:          core.CardTypeBasic,
		ModulesProcessed:  []core.ContentModule{core.ModuleThemes},
		CardsCount:        map[string]int{"themes": 1},
		TotalCards:        1,
		GeneratedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.SaveGeneration(g))
	card := core.Card{"front": "Q", "back": "A"}
	require.NoError(t, store.SaveCard("doc1", "run1", core.CardTypeBasic, core.ModuleThemes, 1, card, false))

	got, err := store.GetGeneration("doc1", "run1", core.CardTypeBasic)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)

	byID, err := store.FindGenerationByID(g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.CardTypeBasic, byID.CardType)

	cards, err := store.ListCards("doc1", "run1", core.CardTypeBasic, core.ModuleThemes, false)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Q", cards[0]["front"])

	_, err = store.GetGeneration("doc1", "run1", core.CardTypeCloze)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestCardStore_OptimizedNamespaceIsSeparate(t *testing.T) {
	store := NewCardStore(newBlobstore(t))

	raw := core.Card{"front": "Q", "back": "A"}
	opt := core.Card{"front": "Q", "back": "A"}.MarkOptimized()
	require.NoError(t, store.SaveCard("doc1", "run1", core.CardTypeBasic, core.ModuleThemes, 1, raw, false))
	require.NoError(t, store.SaveCard("doc1", "run1", core.CardTypeBasic, core.ModuleThemes, 1, opt, true))

	rawCards, err := store.ListCards("doc1", "run1", core.CardTypeBasic, core.ModuleThemes, false)
	require.NoError(t, err)
	optCards, err := store.ListCards("doc1", "run1", core.CardTypeBasic, core.ModuleThemes, true)
	require.NoError(t, err)
	require.Len(t, rawCards, 1)
	require.Len(t, optCards, 1)
	_, hasFlag := rawCards[0]["optimized"]
	assert.False(t, hasFlag)
	assert.Equal(t, true, optCards[0]["optimized"])

	// deleting the optimized namespace leaves the raw generation alone
	existed, err := store.Delete("doc1", "run1", core.CardTypeBasic, true)
	require.NoError(t, err)
	assert.True(t, existed)
	rawCards, err = store.ListCards("doc1", "run1", core.CardTypeBasic, core.ModuleThemes, false)
	require.NoError(t, err)
	assert.Len(t, rawCards, 1)
}

func TestCardStore_OptimizationMetadataAndTracking(t *testing.T) {
	store := NewCardStore(newBlobstore(t))

	o := &core.Optimization{
		ID:           core.NewID(),
		GenerationID: "g1",
		AnalysisID:   "run1",
		DocumentID:   "doc1",
		CardType:     core.CardTypeCloze,
		CardsInput:   50,
		CardsOutput:  62,
		OptimizedAt:  time.Now().UTC(),
	}
	o.OptimizationRatio = core.OptimizationRatio(o.CardsInput, o.CardsOutput)
	require.NoError(t, store.SaveOptimization(o))

	got, err := store.GetOptimization("doc1", "run1", core.CardTypeCloze)
	require.NoError(t, err)
	assert.Equal(t, 1.24, got.OptimizationRatio)

	byID, err := store.FindOptimizationByID(o.ID)
	require.NoError(t, err)
	assert.Equal(t, "g1", byID.GenerationID)

	tr := core.NewTracking("run1", "doc1", "optimize", []core.ContentModule{core.ModuleThemes})
	tr.CardType = core.CardTypeCloze
	tr.SessionID = "sess-42"
	require.NoError(t, store.SaveTracking("doc1", "run1", core.CardTypeCloze, tr, true))

	ledger, err := store.GetTracking("doc1", "run1", core.CardTypeCloze, true)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.Equal(t, "sess-42", ledger.SessionID)

	// the stage-3 ledger for the same card type is a different record
	other, err := store.GetTracking("doc1", "run1", core.CardTypeCloze, false)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestAnkiStore_RoundTrip(t *testing.T) {
	store := NewAnkiStore(newBlobstore(t))

	f := &core.Formatting{
		ID:             core.NewID(),
		OptimizationID: "o1",
		AnalysisID:     "run1",
		DocumentID:     "doc1",
		CardType:       core.CardTypeBasic,
		CardsCount:     2,
		FormattedAt:    time.Now().UTC(),
	}
	deck := "#separator:;\n#html:true\nQ1;A1\nQ2;A2\n"
	require.NoError(t, store.SaveFormatting(f, deck))

	got, err := store.GetFormatting("doc1", "run1", core.CardTypeBasic)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CardsCount)

	byID, err := store.FindByID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "o1", byID.OptimizationID)

	text, err := store.ReadDeck("doc1", "run1", core.CardTypeBasic)
	require.NoError(t, err)
	assert.Equal(t, deck, text)

	assert.Equal(t, "doc1/run1/cards/anki/basic.txt", store.DeckPath("doc1", "run1", core.CardTypeBasic))

	existed, err := store.Delete("doc1", "run1", core.CardTypeBasic)
	require.NoError(t, err)
	assert.True(t, existed)
	_, err = store.ReadDeck("doc1", "run1", core.CardTypeBasic)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}
