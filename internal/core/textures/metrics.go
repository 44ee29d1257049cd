package textures

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the texture core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Resolutions       *prometheus.CounterVec
	FullResolutions   *prometheus.CounterVec
	UpstreamRequests  *prometheus.CounterVec
	ArtifactWrites    *prometheus.CounterVec
	ResolveDuration   *prometheus.HistogramVec
	FreshnessFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them on their own registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Texture resolutions by requested kind and resulting status",
		}, []string{"kind", "status"}),
		FullResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "full_resolutions_total",
			Help:      "Upstream revalidations, split by whether the caller shared an in-flight one",
		}, []string{"shared"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to the texture provider by operation and outcome",
		}, []string{"operation", "outcome"}),
		ArtifactWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_writes_total",
			Help:      "Artifacts written by kind and result",
		}, []string{"kind", "result"}),
		ResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Duration of texture resolutions in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		FreshnessFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "freshness_write_failures_total",
			Help:      "Failed freshness record writes",
		}),
	}

	reg.MustRegister(
		m.Resolutions,
		m.FullResolutions,
		m.UpstreamRequests,
		m.ArtifactWrites,
		m.ResolveDuration,
		m.FreshnessFailures,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveUpstream matches the mojang client observer signature.
func (m *Metrics) ObserveUpstream(operation, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) observeResolution(kind Kind, status Status, seconds float64) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(string(kind), status.String()).Inc()
	m.ResolveDuration.WithLabelValues(string(kind)).Observe(seconds)
}

func (m *Metrics) observeFullResolution(shared bool) {
	if m == nil {
		return
	}
	label := "false"
	if shared {
		label = "true"
	}
	m.FullResolutions.WithLabelValues(label).Inc()
}

func (m *Metrics) observeWrite(kind ArtifactKind, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ArtifactWrites.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) observeFreshnessFailure() {
	if m == nil {
		return
	}
	m.FreshnessFailures.Inc()
}
