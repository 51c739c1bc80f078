package api

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/query"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
)

//go:embed index.html
var indexPage []byte

// Server is the REST API server.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
}

// NewServer creates a new API server with all routes registered.
func NewServer(s store.Store, qs QueryService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		Store:     s,
		Queries:   qs,
		Logger:    logger,
		StartTime: time.Now(),
	}

	mux := http.NewServeMux()

	// API routes.
	mux.HandleFunc("POST /api/v1/queries", h.CreateQuery)
	mux.HandleFunc("GET /api/v1/queries", h.ListQueries)
	mux.HandleFunc("GET /api/v1/queries/{id}", h.GetQuery)
	mux.HandleFunc("PATCH /api/v1/queries/{id}", h.PatchQuery)
	mux.HandleFunc("DELETE /api/v1/queries/{id}", h.DeleteQuery)
	mux.HandleFunc("POST /api/v1/queries/{id}/refresh", h.RefreshQuery)
	mux.HandleFunc("GET /api/v1/export/{format}", h.ExportQueries)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Minimal browser front end.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexPage)
	})

	// Apply middleware (outermost runs first).
	var handler http.Handler = mux
	handler = SecurityHeaders(handler)
	handler = CORS("")(handler) // Empty string disables CORS headers.
	handler = Logger(handler)
	handler = RequestID(handler)
	handler = Recovery(handler)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, handlers: h}
}

// ListenAndServe starts the HTTP server. Blocks until context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer.Addr = addr
	slog.Info("api server starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// SetVersion sets the version string for the health endpoint.
func (s *Server) SetVersion(v string) { s.handlers.Version = v }

// SetStorageInfo sets storage driver and path for the health endpoint.
func (s *Server) SetStorageInfo(driver, path string) {
	s.handlers.StorageDriver = driver
	s.handlers.StoragePath = path
}

// SetQueryDefaults sets the fetch options applied when a create request
// does not override them.
func (s *Server) SetQueryDefaults(opts query.Options) { s.handlers.Defaults = opts }
