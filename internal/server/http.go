package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/dataflow-engine/internal/pipeline"
)

// Version represents the server version exposed via /health.
const Version = "0.1.0"

// Server is a minimal HTTP server exposing a Pipeline's introspection and
// control surface: step listing, run triggering with streamed progress,
// checkpoint resume-point lookup, and Prometheus metrics.
type Server struct {
	pipeline   *pipeline.Pipeline
	mux        *http.ServeMux
	startedAt  time.Time
	version    string
	httpServer *http.Server
}

// NewServer wires the HTTP handlers and returns a Server instance.
func NewServer(p *pipeline.Pipeline) *Server {
	started := time.Now().UTC()
	mux := http.NewServeMux()
	handler := NewHandler(p, started, Version)
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{pipeline: p, mux: mux, startedAt: started, version: Version}
}

// ListenAndServe starts listening on the provided address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	s.httpServer = srv
	return srv.ListenAndServe()
}

// Handler exposes the HTTP handler, making it easier to embed the server elsewhere.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Shutdown gracefully stops the underlying HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
