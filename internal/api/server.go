// Package api provides the HTTP REST surface over the pipeline services.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/Antoine93/anki-doc-master/internal/logging"
	"github.com/Antoine93/anki-doc-master/internal/service"
)

// Server exposes the document registry and the five pipeline stages.
type Server struct {
	router   chi.Router
	pipeline *service.Pipeline
	logger   *logging.Logger

	requestTimeout time.Duration
	allowedOrigins []string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRequestTimeout sets the per-request timeout. Stage calls block on the
// external reasoning engine, so this needs headroom over the gateway timeout.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithAllowedOrigins sets the CORS origin whitelist.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates the API server over the pipeline.
func NewServer(pipeline *service.Pipeline, opts ...ServerOption) *Server {
	s := &Server{
		pipeline:       pipeline,
		logger:         logging.NewNop(),
		requestTimeout: 15 * time.Minute,
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleRegisterDocument)
			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Delete("/", s.handleDeleteDocument)
				r.Get("/status", s.handleStatus)
			})
		})

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleAnalyze)
			r.Get("/{documentID}", s.handleGetAnalysis)
			r.Get("/{documentID}/history", s.handleListAnalyses)
			r.Delete("/{documentID}/{runID}", s.handleDeleteAnalysis)
		})

		r.Route("/restructurations", func(r chi.Router) {
			r.Post("/", s.handleRestructure)
			r.Get("/{documentID}", s.handleGetRestructuration)
			r.Get("/{documentID}/tracking", s.handleRestructureTracking)
		})

		r.Route("/generations", func(r chi.Router) {
			r.Post("/", s.handleGenerate)
			r.Get("/{documentID}/{cardType}", s.handleGetGeneration)
			r.Get("/{documentID}/{cardType}/tracking", s.handleGenerationTracking)
		})

		r.Route("/optimizations", func(r chi.Router) {
			r.Post("/", s.handleOptimize)
			r.Get("/{documentID}/{cardType}", s.handleGetOptimization)
			r.Get("/{documentID}/{cardType}/tracking", s.handleOptimizationTracking)
		})

		r.Route("/formattings", func(r chi.Router) {
			r.Post("/", s.handleFormat)
			r.Get("/{documentID}/{cardType}", s.handleGetFormatting)
			r.Get("/{documentID}/{cardType}/deck", s.handleGetDeck)
		})

		r.Get("/modules", s.handleListModules)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError maps a domain error onto its HTTP status.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := httpStatusForError(err)
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
