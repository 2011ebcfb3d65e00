package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics counts email job outcomes per job type.
type DispatchMetrics struct {
	sent     *prometheus.CounterVec
	canceled *prometheus.CounterVec
	retried  *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch outcome counters on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_jobs_sent_total",
		Help: "Email jobs delivered to the mail provider.",
	}, []string{"type"})
	canceled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_jobs_canceled_total",
		Help: "Email jobs canceled before sending.",
	}, []string{"type"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_jobs_retried_total",
		Help: "Email jobs rescheduled after a transient send failure.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_jobs_failed_total",
		Help: "Email jobs that exhausted their retry budget.",
	}, []string{"type"})
	reg.MustRegister(sent, canceled, retried, failed)
	return &DispatchMetrics{
		sent:     sent,
		canceled: canceled,
		retried:  retried,
		failed:   failed,
	}
}

// IncSent increments the sent counter for the job type.
func (m *DispatchMetrics) IncSent(jobType string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(normalizeLabel(jobType)).Inc()
}

// IncCanceled increments the canceled counter for the job type.
func (m *DispatchMetrics) IncCanceled(jobType string) {
	if m == nil || m.canceled == nil {
		return
	}
	m.canceled.WithLabelValues(normalizeLabel(jobType)).Inc()
}

// IncRetried increments the retried counter for the job type.
func (m *DispatchMetrics) IncRetried(jobType string) {
	if m == nil || m.retried == nil {
		return
	}
	m.retried.WithLabelValues(normalizeLabel(jobType)).Inc()
}

// IncFailed increments the failed counter for the job type.
func (m *DispatchMetrics) IncFailed(jobType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(jobType)).Inc()
}
