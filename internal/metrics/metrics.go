// Package metrics records pipeline stage timings and outcomes with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interview-bot/internal/domain"
)

const namespace = "interviewbot"

// Recorder implements application.Observer.
type Recorder struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	stages      *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Pipeline invocations by outcome (ok or error kind).",
		}, []string{"outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),
	}
	r.registry.MustRegister(
		r.invocations,
		r.stages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) StageDone(stage string, elapsed time.Duration, _ error) {
	r.stages.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (r *Recorder) InvocationDone(_ time.Duration, err error) {
	r.invocations.WithLabelValues(Outcome(err)).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Outcome is "ok" for success, otherwise the error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unknown"
}
