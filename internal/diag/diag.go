// Package diag publishes numeric diagnostics (setpoint, closed-loop error,
// gains, sensor mean). Sinks are write-only: nothing read back from them
// may influence control.
package diag

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Sink receives key/value diagnostics.
type Sink interface {
	Publish(key string, value float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(string, float64) {}

// Prometheus exposes every published key as a gauge on its own registry.
type Prometheus struct {
	registry *prometheus.Registry
	prefix   string

	mu     sync.Mutex
	gauges map[string]prometheus.Gauge
}

// NewPrometheus returns a sink whose gauge names are prefix + flattened key.
func NewPrometheus(prefix string) *Prometheus {
	return &Prometheus{
		registry: prometheus.NewRegistry(),
		prefix:   prefix,
		gauges:   make(map[string]prometheus.Gauge),
	}
}

// Publish sets the gauge for key, registering it on first use.
func (p *Prometheus) Publish(key string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.gauges[key]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: p.prefix + FlattenKey(key),
			Help: key,
		})
		if err := p.registry.Register(g); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if errors.As(err, &are) {
				g = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("failed to register metric %s %v", key, err)
				return
			}
		}
		p.gauges[key] = g
	}
	g.Set(value)
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// FlattenKey turns a free-form key into a valid metric name fragment.
func FlattenKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "=", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}
