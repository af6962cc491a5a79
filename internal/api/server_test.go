package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Antoine93/anki-doc-master/internal/adapters/storage"
	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
	"github.com/Antoine93/anki-doc-master/internal/service"
)

// scriptedGateway serves canned responses in order.
type scriptedGateway struct {
	responses []string
	errs      []error
}

func (g *scriptedGateway) Send(_ context.Context, req core.GatewayRequest) (*core.GatewayResponse, error) {
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return nil, err
	}
	if len(g.responses) == 0 {
		return nil, core.ErrGateway(core.CodeEmptyResponse, "scripted gateway exhausted")
	}
	text := g.responses[0]
	g.responses = g.responses[1:]
	return &core.GatewayResponse{Text: text, Session: core.Session{ID: "s1", AttachmentPath: req.AttachmentPath}}, nil
}

func (g *scriptedGateway) Usage(context.Context) (*core.UsageReport, error) {
	return &core.UsageReport{}, nil
}

type staticPrompts struct{}

func (staticPrompts) SystemPrompt(string) (string, error)         { return "system", nil }
func (staticPrompts) ModulePrompt(string, string) (string, error) { return "prompt", nil }

type apiEnv struct {
	server  *Server
	gateway *scriptedGateway
	docID   string
	pdfPath string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	store, err := blobstore.NewFS(t.TempDir())
	require.NoError(t, err)

	sources := t.TempDir()
	pdfPath := filepath.Join(sources, "cell.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0o600))

	documents := storage.NewDocumentRepository(store, sources)
	doc, err := documents.Register(pdfPath)
	require.NoError(t, err)

	gateway := &scriptedGateway{}
	pipeline := service.New(
		gateway,
		staticPrompts{},
		documents,
		storage.NewAnalysisStore(store),
		storage.NewRestructuredStore(store),
		storage.NewCardStore(store),
		storage.NewAnkiStore(store),
		logging.NewNop(),
	)
	return &apiEnv{
		server:  NewServer(pipeline),
		gateway: gateway,
		docID:   doc.ID,
		pdfPath: pdfPath,
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListModules(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/modules", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Modules []string `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Modules, "themes")
	assert.Len(t, body.Modules, 7)
}

func TestDocumentEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/documents/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/documents/", map[string]string{"path": env.pdfPath})
	require.Equal(t, http.StatusCreated, rec.Code)
	var doc core.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, env.docID, doc.ID, "re-registering keeps the id")

	rec = env.do(t, http.MethodGet, "/api/v1/documents/"+env.docID+"/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/documents/missing/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/documents/", map[string]string{"path": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.gateway.responses = []string{`{"detected_modules":["themes"]}`}

	rec := env.do(t, http.MethodPost, "/api/v1/analyses/", map[string]interface{}{"document_id": env.docID})
	require.Equal(t, http.StatusCreated, rec.Code)

	var analysis core.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, []core.ContentModule{core.ModuleThemes}, analysis.DetectedModules)

	// second call without force conflicts
	rec = env.do(t, http.MethodPost, "/api/v1/analyses/", map[string]interface{}{"document_id": env.docID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/analyses/"+env.docID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/analyses/"+env.docID+"/history", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGatewayFailureMapsToBadGateway(t *testing.T) {
	env := newAPIEnv(t)
	env.gateway.errs = []error{core.ErrGateway(core.CodeEngineFailed, "engine crashed")}

	rec := env.do(t, http.MethodPost, "/api/v1/analyses/", map[string]interface{}{"document_id": env.docID})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPipelineOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	env.gateway.responses = []string{
		`{"detected_modules":["themes"]}`,
		`{"items":[{"title":"Mitosis"}]}`,
		`{"cards":[{"front":"Q1","back":"A1"},{"front":"Q2","back":"A2"}]}`,
		`{"cards":[{"front":"Q1'","back":"A1'"}]}`,
		"Q1';A1'",
	}

	post := func(path string, body map[string]interface{}) *httptest.ResponseRecorder {
		body["document_id"] = env.docID
		rec := env.do(t, http.MethodPost, path, body)
		require.Equal(t, http.StatusCreated, rec.Code, "POST %s: %s", path, rec.Body.String())
		return rec
	}

	post("/api/v1/analyses/", map[string]interface{}{})
	post("/api/v1/restructurations/", map[string]interface{}{})
	post("/api/v1/generations/", map[string]interface{}{"card_type": "basic"})
	post("/api/v1/optimizations/", map[string]interface{}{"card_type": "basic"})
	rec := post("/api/v1/formattings/", map[string]interface{}{"card_type": "basic"})

	var formatting core.Formatting
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &formatting))
	assert.Equal(t, 1, formatting.CardsCount)

	// deck is served as plain text with injected headers
	rec = env.do(t, http.MethodGet, "/api/v1/formattings/"+env.docID+"/basic/deck", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#separator:;")
	assert.Contains(t, rec.Body.String(), "Q1';A1'")

	// tracking views
	rec = env.do(t, http.MethodGet, "/api/v1/generations/"+env.docID+"/basic/tracking", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/documents/"+env.docID+"/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidCardTypeIsBadRequest(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/generations/"+env.docID+"/matching/tracking", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
