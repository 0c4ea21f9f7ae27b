package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the lifecycle collectors. A nil *Metrics is valid and records nothing,
// so components never need to branch on whether metrics are enabled.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	issues      *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	installTime prometheus.Histogram
}

// NewMetrics creates the lifecycle collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodelib",
			Name:      "lifecycle_transitions_total",
			Help:      "Number of library lifecycle state transitions.",
		}, []string{"from", "to"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodelib",
			Name:      "lifecycle_issues_total",
			Help:      "Number of lifecycle issues recorded, by stage and severity.",
		}, []string{"stage", "severity"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodelib",
			Name:      "library_outcomes_total",
			Help:      "Final library status after a lifecycle run.",
		}, []string{"status"}),
		installTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nodelib",
			Name:      "dependency_install_seconds",
			Help:      "Wall time spent in the dependency installer subprocess.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	m.registry.MustRegister(m.transitions, m.issues, m.outcomes, m.installTime)
	return m
}

// Registry exposes the underlying registry, mostly for tests and exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveIssue(stage, severity string) {
	if m == nil {
		return
	}
	m.issues.WithLabelValues(stage, severity).Inc()
}

func (m *Metrics) ObserveOutcome(status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveInstall(d time.Duration) {
	if m == nil {
		return
	}
	m.installTime.Observe(d.Seconds())
}

// WriteTextfile dumps all collectors in the Prometheus text format, suitable for
// the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
