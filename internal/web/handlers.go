package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/daisy/internal/logic/indexer"
	"github.com/cjeanneret/daisy/internal/loop"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// gainsTimeout bounds how long POST /gains waits for the control loop.
const gainsTimeout = 2 * time.Second

// Loop is the control loop as seen by the HTTP handlers.
type Loop interface {
	Snapshot() loop.Snapshot
	Submit(name string) error
	PushGains(ctx context.Context, u indexer.GainsUpdate) error
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Name string `json:"name"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Loop        Loop
	Metrics     http.Handler
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If metrics is nil, GET /metrics returns 404.
func NewHandlers(broadcaster *StatusBroadcaster, l Loop, metrics http.Handler, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Loop:        l,
		Metrics:     metrics,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("web: encode response: %v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatus returns the latest control loop snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Loop.Snapshot())
}

// HandleCommand handles POST /command to queue a routine.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CommandRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	err := h.Loop.Submit(req.Name)
	switch {
	case errors.Is(err, loop.ErrUnknownCommand):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, loop.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.Broadcaster.BroadcastMsg("Command " + req.Name + " queued")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "name": req.Name})
}

// HandleGains handles POST /gains, a partial gains update applied by the
// control loop when tuning mode is on.
func (h *Handlers) HandleGains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var u indexer.GainsUpdate
	if err := decodeBody(w, r, &u); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gainsTimeout)
	defer cancel()
	err := h.Loop.PushGains(ctx, u)
	switch {
	case err == nil:
	case errors.Is(err, indexer.ErrTuningDisabled):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		http.Error(w, "control loop not responding", http.StatusServiceUnavailable)
		return
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := h.Loop.Snapshot()
	h.Broadcaster.BroadcastMsg("Gains updated")
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "applied", "gains": s.Gains, "limits": s.Limits})
}

// HandleMetrics serves the diagnostics registry.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.Metrics == nil {
		http.Error(w, "metrics not configured", http.StatusNotFound)
		return
	}
	h.Metrics.ServeHTTP(w, r)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
