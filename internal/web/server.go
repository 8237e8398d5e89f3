package web

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server for the control loop l. metrics may be nil.
func NewServer(addr string, broadcaster *StatusBroadcaster, l Loop, metrics http.Handler) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, l, metrics, subFS),
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", s.handlers.HandleStatus)
	mux.HandleFunc("POST /command", s.handlers.HandleCommand)
	mux.HandleFunc("POST /gains", s.handlers.HandleGains)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.HandleFunc("GET /metrics", s.handlers.HandleMetrics)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
