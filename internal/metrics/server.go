package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 5 * time.Second

// Server serves a Collector's registry over HTTP.
type Server struct {
	server *http.Server
	ln     net.Listener
}

// Handler returns the mux with the metrics path and /healthz.
func Handler(c *Collector, path string) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	router := http.NewServeMux()
	router.Handle("GET "+path, promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return router
}

// NewServer binds listen immediately so address errors surface at startup.
func NewServer(listen, path string, c *Collector) (*Server, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("metrics: listening on %s: %w", listen, err)
	}
	return &Server{
		server: &http.Server{
			Handler:           Handler(c, path),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		ln: ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve() error {
	if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serving: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
