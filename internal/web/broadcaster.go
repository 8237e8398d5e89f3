package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/daisy/internal/loop"
	log "github.com/sirupsen/logrus"
)

// StatusEvent is a single SSE message: a log line or a status snapshot.
type StatusEvent struct {
	Time   string         `json:"t"`
	Level  string         `json:"l,omitempty"`
	Msg    string         `json:"msg,omitempty"`
	Status *loop.Snapshot `json:"status,omitempty"`
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Clients returns the number of connected subscribers.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends a log line to all subscribed clients as
// {"t":"...","l":"info","msg":"..."}. Slow clients miss messages.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// BroadcastStatus sends a snapshot event with level "status".
func (b *StatusBroadcaster) BroadcastStatus(s loop.Snapshot) {
	b.send(StatusEvent{Level: "status", Status: &s})
}

func (b *StatusBroadcaster) send(evt StatusEvent) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// StatusPublisher turns the per-tick snapshots of the control loop into
// status events. A snapshot is forwarded when a visible field changed or
// when interval elapsed since the last one.
type StatusPublisher struct {
	b        *StatusBroadcaster
	interval time.Duration
	now      func() time.Time

	last loop.Snapshot
	sent time.Time
	any  bool
}

// NewStatusPublisher returns a publisher for b. Observe is meant for
// loop.WithObserver.
func NewStatusPublisher(b *StatusBroadcaster, interval time.Duration) *StatusPublisher {
	return &StatusPublisher{b: b, interval: interval, now: time.Now}
}

// Observe forwards s when it differs from the last forwarded snapshot.
func (p *StatusPublisher) Observe(s loop.Snapshot) {
	now := p.now()
	if p.any && !changed(p.last, s) && now.Sub(p.sent) < p.interval {
		return
	}
	p.last, p.sent, p.any = s, now, true
	p.b.BroadcastStatus(s)
}

func changed(a, b loop.Snapshot) bool {
	return a.SlotIndex != b.SlotIndex ||
		a.Routine != b.Routine ||
		a.AtSetpoint != b.AtSetpoint ||
		a.Dark != b.Dark ||
		a.SensorReady != b.SensorReady ||
		a.Phase != b.Phase ||
		a.Gains != b.Gains ||
		a.Limits != b.Limits ||
		a.DriverErrors != b.DriverErrors
}

// Hook forwards log entries to the broadcaster. Install with debug.AddHook.
type Hook struct {
	b *StatusBroadcaster
}

// NewHook creates a logrus hook for b.
func NewHook(b *StatusBroadcaster) *Hook {
	return &Hook{b: b}
}

func (h *Hook) Levels() []log.Level {
	return log.AllLevels
}

func (h *Hook) Fire(e *log.Entry) error {
	msg := strings.TrimSpace(e.Message)
	if msg != "" {
		h.b.Broadcast(e.Level.String(), msg)
	}
	return nil
}
