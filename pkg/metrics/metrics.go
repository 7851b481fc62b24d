// Package metrics exposes the Prometheus collectors the orchestrator writes
// to through pipeline.MetricsRecorder, and serves them at /metrics via
// promhttp (see internal/server).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/dataflow-engine/internal/pipeline"
)

var (
	stepExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataflow_step_executions_total",
			Help: "Total number of step invocations, by capability and outcome.",
		},
		[]string{"capability", "outcome"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataflow_step_duration_seconds",
			Help: "Step invocation duration in seconds.",
		},
		[]string{"capability"},
	)

	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dataflow_checkpoint_cache_hits_total",
			Help: "Total number of resumable executions that found a usable checkpoint.",
		},
	)

	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dataflow_checkpoint_cache_misses_total",
			Help: "Total number of resumable executions that started from scratch.",
		},
	)

	chunkIterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataflow_chunk_iterations_total",
			Help: "Total number of chunk coordinate dequeues, by extractor and padding/real.",
		},
		[]string{"extractor", "kind"},
	)
)

// Recorder implements pipeline.MetricsRecorder against the package-level
// Prometheus collectors above.
type Recorder struct{}

// New returns a Recorder bound to this package's shared collectors.
func New() Recorder { return Recorder{} }

func (Recorder) StepExecuted(stepName string, capability pipeline.Capability, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	stepExecutions.WithLabelValues(string(capability), outcome).Inc()
	stepDuration.WithLabelValues(string(capability)).Observe(duration.Seconds())
}

func (Recorder) CacheHit(stepKey string) { cacheHits.Inc() }

func (Recorder) CacheMiss(stepKey string) { cacheMisses.Inc() }

func (Recorder) ChunkIteration(extractorName string, skip, take *int) {
	kind := "real"
	if skip == nil && take == nil {
		kind = "padding"
	}
	chunkIterations.WithLabelValues(extractorName, kind).Inc()
}

var _ pipeline.MetricsRecorder = Recorder{}
