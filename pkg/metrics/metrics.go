package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SubmissionMetrics records outcomes and stage latency of submissions.
type SubmissionMetrics interface {
	IncSubmission(form, outcome string)
	ObserveStage(form, stage string, d time.Duration)
	AddMediaBytes(form string, n int)
}

var METRICS_SUBSYSTEM = "intake"

type submissionMetrics struct {
	submissions *prometheus.CounterVec
	stages      *prometheus.HistogramVec
	mediaBytes  *prometheus.CounterVec
}

// InitMetrics creates the submission collectors and registers them with
// registry. It panics if they are already registered there.
func InitMetrics(ctx context.Context, registry prometheus.Registerer) *submissionMetrics {
	metrics := &submissionMetrics{}

	metrics.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "submissions_total",
		Help: "Submissions by form and outcome", Subsystem: METRICS_SUBSYSTEM}, []string{"form", "outcome"})

	metrics.stages = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each submission stage",
		Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		Subsystem: METRICS_SUBSYSTEM,
	}, []string{"form", "stage"})

	metrics.mediaBytes = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "media_bytes_total",
		Help: "Normalized image bytes embedded in payloads", Subsystem: METRICS_SUBSYSTEM}, []string{"form"})

	registry.MustRegister(metrics.submissions, metrics.stages, metrics.mediaBytes)
	return metrics
}

func (m *submissionMetrics) IncSubmission(form, outcome string) {
	m.submissions.With(prometheus.Labels{"form": form, "outcome": outcome}).Inc()
}

func (m *submissionMetrics) ObserveStage(form, stage string, d time.Duration) {
	m.stages.With(prometheus.Labels{"form": form, "stage": stage}).Observe(d.Seconds())
}

func (m *submissionMetrics) AddMediaBytes(form string, n int) {
	m.mediaBytes.With(prometheus.Labels{"form": form}).Add(float64(n))
}

type noop struct{}

// Noop returns metrics that record nothing.
func Noop() SubmissionMetrics { return noop{} }

func (noop) IncSubmission(string, string)               {}
func (noop) ObserveStage(string, string, time.Duration) {}
func (noop) AddMediaBytes(string, int)                  {}
