// Package metrics exports build task timings to Prometheus.
package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Recorder implements task.Observer and build-level bookkeeping.
type Recorder struct {
	taskDuration  *prom.HistogramVec
	taskResults   *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	lastBuild     prom.Gauge
}

// NewRecorder constructs the collectors and registers them on reg. A nil
// reg gets a private registry.
func NewRecorder(reg prom.Registerer) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "quire",
			Name:      "task_duration_seconds",
			Help:      "Duration of leaf build tasks by kind",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "quire",
			Name:      "task_results_total",
			Help:      "Leaf task results by kind and outcome",
		}, []string{"kind", "outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "quire",
			Name:      "build_duration_seconds",
			Help:      "Total duration of a build target",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "quire",
			Name:      "build_outcomes_total",
			Help:      "Build target outcomes",
		}, []string{"target", "outcome"}),
		lastBuild: prom.NewGauge(prom.GaugeOpts{
			Namespace: "quire",
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time of the last finished build",
		}),
	}
	reg.MustRegister(r.taskDuration, r.taskResults, r.buildDuration, r.buildOutcome, r.lastBuild)
	return r
}

// ObserveTask records a leaf task. The label is the task name prefix
// ("markdown", "inject", "copy", ...) to keep cardinality bounded.
func (r *Recorder) ObserveTask(name string, d time.Duration, err error) {
	if r == nil || r.taskDuration == nil {
		return
	}
	kind := Kind(name)
	r.taskDuration.WithLabelValues(kind).Observe(d.Seconds())
	r.taskResults.WithLabelValues(kind, outcome(err)).Inc()
}

// ObserveBuild records a finished build target.
func (r *Recorder) ObserveBuild(target string, d time.Duration, err error) {
	if r == nil || r.buildDuration == nil {
		return
	}
	r.buildDuration.Observe(d.Seconds())
	r.buildOutcome.WithLabelValues(target, outcome(err)).Inc()
	r.lastBuild.SetToCurrentTime()
}

// Kind extracts the label used for a task name of the form "kind:detail".
func Kind(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i]
		}
	}
	return name
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}
