package pipeline

// Cacheable control steps (spec.md §4.7, §9): Transforms the orchestrator
// exposes as factories rather than user-authored callables. Design Notes §9
// calls for inverting the Pipeline->Step->Pipeline back-reference a naive
// "restore" transform would need; these steps instead carry just enough
// state (a kind tag and, for restore, a key) for the orchestrator to
// recognize and service them directly against its own cache handle.

type controlKind int

const (
	controlCacheSnapshot controlKind = iota
	controlRestoreSnapshot
	controlResetCache
)

// controlStep is recognized by type assertion in the execution loop; its
// Invoke is never called by a caller that doesn't already know to special-
// case it.
type controlStep struct {
	descriptor *Descriptor
	kind       controlKind
	restoreKey int
	deleteDir  bool
}

func (s *controlStep) Descriptor() *Descriptor { return s.descriptor }

// Invoke satisfies the Step interface but is not the path the orchestrator
// uses for a controlStep; servicing happens in Pipeline.runControlStep,
// which has access to the cache handle this step type deliberately does
// not carry.
func (s *controlStep) Invoke(map[string]any) (Result, error) { return NoResult(), nil }

var _ Step = (*controlStep)(nil)

func newControlDescriptor(name string) *Descriptor {
	return &Descriptor{
		Name:           name,
		Capability:     CapabilityTransform,
		DefaultParams:  map[string]any{},
		InputOverrides: map[string]any{},
	}
}

// NewCacheSnapshotStep builds a control step that puts the current
// (bus, globalcontext) into the attached cache's in-memory LFU. When
// returnsName is non-empty, the assigned snapshot key is also written to
// the parameter bus under that name.
func NewCacheSnapshotStep(name string, returnsName string) Step {
	d := newControlDescriptor(name)
	if returnsName != "" {
		d.DeclaredReturns = []string{returnsName}
	}
	return &controlStep{descriptor: d, kind: controlCacheSnapshot}
}

// NewRestoreSnapshotStep builds a control step that overwrites the current
// (bus, globalcontext) from the in-memory LFU entry at key.
func NewRestoreSnapshotStep(name string, key int) Step {
	return &controlStep{descriptor: newControlDescriptor(name), kind: controlRestoreSnapshot, restoreKey: key}
}

// NewResetCacheStep builds a control step that clears the on-disk and
// in-memory cache state. The orchestrator never checkpoints after this
// step runs (spec.md §4.7 "cache-reset marker").
func NewResetCacheStep(name string, deleteDir bool) Step {
	return &controlStep{descriptor: newControlDescriptor(name), kind: controlResetCache, deleteDir: deleteDir}
}
