package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/dataflow-engine/internal/pipeline"
)

func TestRecorder_StepExecutedIncrementsByOutcome(t *testing.T) {
	r := New()
	r.StepExecuted("extract_users", pipeline.CapabilityExtract, 10*time.Millisecond, nil)
	r.StepExecuted("extract_users", pipeline.CapabilityExtract, 5*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(stepExecutions.WithLabelValues("extract", "ok")); got != 1 {
		t.Fatalf("expected 1 ok execution, got %v", got)
	}
	if got := testutil.ToFloat64(stepExecutions.WithLabelValues("extract", "error")); got != 1 {
		t.Fatalf("expected 1 error execution, got %v", got)
	}
}

func TestRecorder_CacheHitAndMiss(t *testing.T) {
	r := New()
	before := testutil.ToFloat64(cacheHits)
	r.CacheHit("step-1")
	if got := testutil.ToFloat64(cacheHits); got != before+1 {
		t.Fatalf("expected cache hit counter to increment, got %v", got)
	}

	beforeMiss := testutil.ToFloat64(cacheMisses)
	r.CacheMiss("")
	if got := testutil.ToFloat64(cacheMisses); got != beforeMiss+1 {
		t.Fatalf("expected cache miss counter to increment, got %v", got)
	}
}

func TestRecorder_ChunkIterationDistinguishesPadding(t *testing.T) {
	r := New()
	n := 4
	r.ChunkIteration("extract_rows", &n, &n)
	r.ChunkIteration("extract_rows", nil, nil)

	if got := testutil.ToFloat64(chunkIterations.WithLabelValues("extract_rows", "real")); got != 1 {
		t.Fatalf("expected 1 real iteration, got %v", got)
	}
	if got := testutil.ToFloat64(chunkIterations.WithLabelValues("extract_rows", "padding")); got != 1 {
		t.Fatalf("expected 1 padding iteration, got %v", got)
	}
}
