// Package metrics exposes pipeline counters and latencies to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes, used as the "outcome" label.
const (
	OutcomeOK         = "ok"
	OutcomeNoJobs     = "no_jobs"
	OutcomeInvalidURL = "invalid_url"
	OutcomeEmptyPage  = "empty_page"
	OutcomeParseError = "parse_error"
	OutcomeError      = "error"
)

// Recorder holds the collectors. A nil *Recorder records nothing.
type Recorder struct {
	runs     *prometheus.CounterVec
	postings prometheus.Counter
	drafts   prometheus.Counter
	stages   *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hireflow",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		postings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hireflow",
			Name:      "postings_extracted_total",
			Help:      "Job postings extracted from careers pages.",
		}),
		drafts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hireflow",
			Name:      "drafts_composed_total",
			Help:      "Outreach emails composed.",
		}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hireflow",
			Name:      "stage_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
	}
	reg.MustRegister(r.runs, r.postings, r.drafts, r.stages)
	return r
}

// ObserveRun counts one finished run.
func (r *Recorder) ObserveRun(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

// AddPostings counts extracted postings.
func (r *Recorder) AddPostings(n int) {
	if r == nil {
		return
	}
	r.postings.Add(float64(n))
}

// IncDrafts counts one composed email.
func (r *Recorder) IncDrafts() {
	if r == nil {
		return
	}
	r.drafts.Inc()
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stages.WithLabelValues(stage).Observe(d.Seconds())
}
