package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sidecar task results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultPanic   = "panic"
	ResultDropped = "dropped"
)

// Metrics holds the Prometheus collectors of one server instance.
// Each instance owns its registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	SidecarTasks        *prometheus.CounterVec
	SidecarDuration     *prometheus.HistogramVec
	HTTPRequestDuration *prometheus.HistogramVec
	RiskMutations       *prometheus.CounterVec
	OverdueDigests      prometheus.Counter
}

// New creates a registry and registers all collectors on it
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SidecarTasks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskledger_sidecar_tasks_total",
			Help: "Total number of audit and notification tasks by outcome",
		}, []string{"task", "result"}),
		SidecarDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskledger_sidecar_task_duration_seconds",
			Help:    "Duration of audit and notification tasks",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"task"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskledger_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route", "status"}),
		RiskMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskledger_risk_mutations_total",
			Help: "Total number of committed mutations by audit action",
		}, []string{"action"}),
		OverdueDigests: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskledger_overdue_digests_sent_total",
			Help: "Total number of overdue review digests posted",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementSidecar records the outcome of a sidecar task
func (m *Metrics) IncrementSidecar(task, result string) {
	if m == nil {
		return
	}
	m.SidecarTasks.WithLabelValues(task, result).Inc()
}

// ObserveSidecar records a sidecar task duration.
// Call with time.Now() at the start of the task.
func (m *Metrics) ObserveSidecar(task string, start time.Time) {
	if m == nil {
		return
	}
	m.SidecarDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
}

// ObserveHTTPRequest records the duration of one served request
func (m *Metrics) ObserveHTTPRequest(method, route, status string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}

// IncrementRiskMutation counts a committed mutation
func (m *Metrics) IncrementRiskMutation(action string) {
	if m == nil {
		return
	}
	m.RiskMutations.WithLabelValues(action).Inc()
}

// IncrementOverdueDigest counts a posted digest
func (m *Metrics) IncrementOverdueDigest() {
	if m == nil {
		return
	}
	m.OverdueDigests.Inc()
}
