// Package metrics registra los contadores Prometheus del servicio.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	DosesGenerated       prometheus.Counter
	DoseTransitions      *prometheus.CounterVec
	DoseTransitionReject *prometheus.CounterVec
	AdherenceReports     prometheus.Counter
	AdherenceCacheErrors prometheus.Counter
	NotificationsSent    *prometheus.CounterVec
	SchedulerRuns        *prometheus.CounterVec
}

// New crea un registry propio (no el global) para que los tests puedan
// instanciar varios routers sin colisiones de registro.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		DosesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careconnect",
			Name:      "doses_generated_total",
			Help:      "Dose rows inserted by the generator.",
		}),
		DoseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Name:      "dose_transitions_total",
			Help:      "Successful dose state transitions by target status.",
		}, []string{"status"}),
		DoseTransitionReject: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Name:      "dose_transition_rejections_total",
			Help:      "Rejected dose transitions by reason.",
		}, []string{"reason"}),
		AdherenceReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careconnect",
			Name:      "adherence_reports_total",
			Help:      "Adherence reports computed.",
		}),
		AdherenceCacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careconnect",
			Name:      "adherence_cache_write_failures_total",
			Help:      "Failed best-effort writes of the cached adherence rate.",
		}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Name:      "notifications_total",
			Help:      "Notifications created by type.",
		}, []string{"type"}),
		SchedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Name:      "scheduler_runs_total",
			Help:      "Scheduler job executions by job and outcome.",
		}, []string{"job", "outcome"}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		m.DosesGenerated,
		m.DoseTransitions,
		m.DoseTransitionReject,
		m.AdherenceReports,
		m.AdherenceCacheErrors,
		m.NotificationsSent,
		m.SchedulerRuns,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Helpers nil-safe: los servicios pueden correr sin métricas (tests, CLI).

func (m *Metrics) AddDosesGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DosesGenerated.Add(float64(n))
}

func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.DoseTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) TransitionRejected(reason string) {
	if m == nil {
		return
	}
	m.DoseTransitionReject.WithLabelValues(reason).Inc()
}

func (m *Metrics) Report() {
	if m == nil {
		return
	}
	m.AdherenceReports.Inc()
}

func (m *Metrics) CacheWriteFailed() {
	if m == nil {
		return
	}
	m.AdherenceCacheErrors.Inc()
}

func (m *Metrics) Notification(typ string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(typ).Inc()
}

func (m *Metrics) SchedulerRun(job string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SchedulerRuns.WithLabelValues(job, outcome).Inc()
}
