package pipeline

import "fmt"

// MissingParameterError reports that a required kwarg was nil after
// resolution (spec.md §7). Fatal to the step; the orchestrator aborts
// without checkpointing the step.
type MissingParameterError struct {
	StepName string
	StepKey  string
	Param    string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("pipeline: step %s (%s): missing parameter %q", e.StepName, e.StepKey, e.Param)
}

// ArityMismatchError reports that a step's output element count did not
// match its declared_returns length.
type ArityMismatchError struct {
	StepName string
	StepKey  string
	Want     int
	Got      int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("pipeline: step %s (%s): expected %d return value(s), got %d", e.StepName, e.StepKey, e.Want, e.Got)
}

// TypeViolationError reports that an object offered where a capability was
// required does not satisfy it (spec.md §4.8). Fatal at the setter; never
// deferred.
type TypeViolationError struct {
	Seam     string
	Expected string
}

func (e *TypeViolationError) Error() string {
	return fmt.Sprintf("pipeline: %s: expected a %s", e.Seam, e.Expected)
}

// ChunkPolicyViolationError reports a loader with a non-append exists
// policy found while chunking is enabled (spec.md §7). Fatal at coordinator
// construction.
type ChunkPolicyViolationError struct {
	StepName string
	Policy   ExistsPolicy
}

func (e *ChunkPolicyViolationError) Error() string {
	return fmt.Sprintf("pipeline: load step %s: exists_policy %q is incompatible with chunking (must be append)", e.StepName, e.Policy)
}

// CacheCorruptionError reports a manifest entry referencing a missing or
// unreadable blob. Pipeline.Execute does not recover from it: when the
// resume point's blob cannot be loaded, Execute returns this error without
// falling back to an earlier checkpoint.
type CacheCorruptionError struct {
	StepKey string
	Cause   error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("pipeline: checkpoint for step %s is corrupt: %v", e.StepKey, e.Cause)
}

func (e *CacheCorruptionError) Unwrap() error { return e.Cause }

// UserError wraps any error raised inside a step body, annotated with
// identifying context (spec.md §7).
type UserError struct {
	StepName string
	StepKey  string
	Ordinal  int
	Cause    error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("pipeline: step %s (%s, ordinal %d) failed: %v", e.StepName, e.StepKey, e.Ordinal, e.Cause)
}

func (e *UserError) Unwrap() error { return e.Cause }
