package pipeline

import "time"

// Logger is the narrow structured-logging seam the orchestrator writes to.
// pkg/logging provides a zerolog-backed implementation; the orchestrator
// defaults to a no-op so it never forces a logging dependency on callers
// that don't want one.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// MetricsRecorder is the narrow metrics seam the orchestrator writes to.
// pkg/metrics provides a Prometheus-backed implementation; the orchestrator
// defaults to a no-op.
type MetricsRecorder interface {
	StepExecuted(stepName string, capability Capability, duration time.Duration, err error)
	CacheHit(stepKey string)
	CacheMiss(stepKey string)
	ChunkIteration(extractorName string, skip, take *int)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) StepExecuted(string, Capability, time.Duration, error) {}
func (nopMetrics) CacheHit(string)                                       {}
func (nopMetrics) CacheMiss(string)                                      {}
func (nopMetrics) ChunkIteration(string, *int, *int)                     {}

var (
	_ Logger          = nopLogger{}
	_ MetricsRecorder = nopMetrics{}
)
