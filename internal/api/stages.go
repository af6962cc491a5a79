package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

// stageRequest is the shared POST body of the five stage endpoints. Fields
// irrelevant to a stage are ignored by it.
type stageRequest struct {
	DocumentID  string   `json:"document_id"`
	RunID       string   `json:"run_id,omitempty"`
	CardType    string   `json:"card_type,omitempty"`
	Modules     []string `json:"modules,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Force       bool     `json:"force,omitempty"`
}

func (s *Server) decodeStageRequest(w http.ResponseWriter, r *http.Request) (*stageRequest, bool) {
	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, core.ErrValidation("INVALID_BODY", "request body is not valid JSON").WithCause(err))
		return nil, false
	}
	if req.DocumentID == "" {
		s.respondError(w, core.ErrValidation(core.CodeEmptyID, "document_id is required"))
		return nil, false
	}
	return &req, true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeStageRequest(w, r)
	if !ok {
		return
	}
	analysis, err := s.pipeline.Analyze(r.Context(), req.DocumentID, req.Force)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, analysis)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.pipeline.GetAnalysis(chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.pipeline.ListAnalyses(chi.URLParam(r, "documentID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"analyses": analyses})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.pipeline.DeleteAnalysis(chi.URLParam(r, "documentID"), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleRestructure(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeStageRequest(w, r)
	if !ok {
		return
	}
	result, err := s.pipeline.Restructure(r.Context(), req.DocumentID, req.RunID, req.Modules, req.Force)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetRestructuration(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.GetRestructuration(chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRestructureTracking(w http.ResponseWriter, r *http.Request) {
	tracking, err := s.pipeline.GetRestructureTracking(chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if tracking == nil {
		s.respondError(w, core.ErrNotFound("tracking", chi.URLParam(r, "documentID")))
		return
	}
	s.respondJSON(w, http.StatusOK, tracking)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeStageRequest(w, r)
	if !ok {
		return
	}
	result, err := s.pipeline.Generate(r.Context(), req.DocumentID, req.RunID, req.CardType, req.Modules, req.Force)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.GetGeneration(chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"), chi.URLParam(r, "cardType"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerationTracking(w http.ResponseWriter, r *http.Request) {
	s.respondTracking(w, r, false)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeStageRequest(w, r)
	if !ok {
		return
	}
	result, err := s.pipeline.Optimize(r.Context(), req.DocumentID, req.RunID, req.CardType, req.ContentType, req.Force)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetOptimization(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.GetOptimization(chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"), chi.URLParam(r, "cardType"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleOptimizationTracking(w http.ResponseWriter, r *http.Request) {
	s.respondTracking(w, r, true)
}

func (s *Server) respondTracking(w http.ResponseWriter, r *http.Request, optimized bool) {
	documentID := chi.URLParam(r, "documentID")
	runID := r.URL.Query().Get("run_id")
	cardType := chi.URLParam(r, "cardType")

	var (
		tracking *core.Tracking
		err      error
	)
	if optimized {
		tracking, err = s.pipeline.GetOptimizationTracking(documentID, runID, cardType)
	} else {
		tracking, err = s.pipeline.GetGenerationTracking(documentID, runID, cardType)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	if tracking == nil {
		s.respondError(w, core.ErrNotFound("tracking", documentID))
		return
	}
	s.respondJSON(w, http.StatusOK, tracking)
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeStageRequest(w, r)
	if !ok {
		return
	}
	result, err := s.pipeline.Format(r.Context(), req.DocumentID, req.RunID, req.CardType, req.Force)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetFormatting(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.GetFormatting(chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"), chi.URLParam(r, "cardType"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := s.pipeline.ReadDeck(chi.URLParam(r, "documentID"), r.URL.Query().Get("run_id"), chi.URLParam(r, "cardType"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(deck)); err != nil {
		s.logger.Error("failed to write deck response", "error", err)
	}
}
