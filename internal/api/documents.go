package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

type registerDocumentRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	var req registerDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, core.ErrValidation("INVALID_BODY", "request body is not valid JSON").WithCause(err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.respondError(w, core.ErrValidation("EMPTY_PATH", "path is required"))
		return
	}

	doc, err := s.pipeline.RegisterDocument(req.Path)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs, err := s.pipeline.ListDocuments()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pipeline.GetDocument(chi.URLParam(r, "documentID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.DeleteDocument(chi.URLParam(r, "documentID")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.pipeline.Status(r.Context(), chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleListModules(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"modules": s.pipeline.AvailableModules()})
}
