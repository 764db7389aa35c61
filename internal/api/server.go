// Package api exposes job and document creation over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shopseq/internal/logging"
	"shopseq/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// JobService is the job use-case surface the handlers need
type JobService interface {
	CreateJob(ctx context.Context, tenantID int64, in models.CreateJobInput) (*models.Job, error)
	GetJob(ctx context.Context, tenantID int64, number string) (*models.Job, error)
	GetJobByToken(ctx context.Context, token string) (*models.Job, error)
	ListJobs(ctx context.Context, tenantID int64, limit, offset int) ([]*models.Job, error)
	DeleteJob(ctx context.Context, tenantID int64, number string) error
}

// DocumentService is the document use-case surface the handlers need
type DocumentService interface {
	Create(ctx context.Context, tenantID int64, series string, in models.CreateDocumentInput) (*models.Document, error)
	Get(ctx context.Context, tenantID int64, series, number string) (*models.Document, error)
	List(ctx context.Context, tenantID int64, series string, limit, offset int) ([]*models.Document, error)
}

// Pinger reports database reachability for /healthz
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server is the HTTP server of the allocation service
type Server struct {
	jobs       JobService
	documents  DocumentService
	db         Pinger
	httpServer *http.Server
	router     chi.Router
}

// New creates a new Server
func New(jobs JobService, documents DocumentService, db Pinger, bindAddr string) *Server {
	srv := &Server{jobs: jobs, documents: documents, db: db}
	srv.router = srv.buildRouter()
	srv.httpServer = &http.Server{
		Addr:              bindAddr,
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{number}", s.handleGetJob)
		r.Delete("/jobs/{number}", s.handleDeleteJob)

		r.Post("/series/{series}/documents", s.handleCreateDocument)
		r.Get("/series/{series}/documents", s.handleListDocuments)
		r.Get("/series/{series}/documents/{number}", s.handleGetDocument)
	})
	r.Get("/api/tokens/{token}", s.handleGetJobByToken)

	r.Get("/healthz", s.handleHealthz)

	return r
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	logging.WithComponent("api").WithField("addr", s.httpServer.Addr).Info("HTTP server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.WithComponent("api").Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Handler returns the http.Handler for testing
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.WithComponent("api").WithFields(logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}
