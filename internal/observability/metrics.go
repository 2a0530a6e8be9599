package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application's collectors. Each instance owns its own
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	PaymentsApplied  prometheus.Counter
	PaymentsRejected *prometheus.CounterVec
	CreditsCreated   prometheus.Counter
	CreditsCancelled prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
	JobRuns          *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PaymentsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credit_payments_applied_total",
			Help: "Payments recorded against credits.",
		}),
		PaymentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_payments_rejected_total",
			Help: "Payments refused, by reason.",
		}, []string{"reason"}),
		CreditsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credits_created_total",
			Help: "Credits opened.",
		}),
		CreditsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credits_cancelled_total",
			Help: "Credits cancelled.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job executions, by job and outcome.",
		}, []string{"job", "outcome"}),
	}
	m.registry.MustRegister(
		m.PaymentsApplied, m.PaymentsRejected, m.CreditsCreated, m.CreditsCancelled,
		m.RequestDuration, m.JobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// RecordPayment counts an applied payment, or a rejected one labelled with
// its reason from reasons. The sentinels in reasons must not wrap each other.
func (m *Metrics) RecordPayment(err error, reasons map[error]string) {
	if err == nil {
		m.PaymentsApplied.Inc()
		return
	}
	for target, reason := range reasons {
		if errors.Is(err, target) {
			m.PaymentsRejected.WithLabelValues(reason).Inc()
			return
		}
	}
	m.PaymentsRejected.WithLabelValues("other").Inc()
}

func (m *Metrics) CreditOpened()    { m.CreditsCreated.Inc() }
func (m *Metrics) CreditCancelled() { m.CreditsCancelled.Inc() }

// RecordJob counts a scheduled job run.
func (m *Metrics) RecordJob(job string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
}
