package pipeline

// StepOption configures a Descriptor at construction time. This replaces
// the source-reflection binding spec.md §4.2 describes for the dynamically
// typed original: per spec.md §9's Design Notes, a statically typed target
// requires explicit descriptors built through a small builder API.
type StepOption func(*Descriptor)

// Params declares the ordered parameter names a step accepts.
func Params(names ...string) StepOption {
	return func(d *Descriptor) {
		d.ParamNames = append([]string(nil), names...)
		d.NeedsContext = containsContextParam(d.ParamNames)
	}
}

// Defaults declares default values for some subset of ParamNames.
func Defaults(values map[string]any) StepOption {
	return func(d *Descriptor) {
		d.DefaultParams = cloneDefaults(values)
	}
}

// Returns declares the ordered list of names a step's scalar/tuple output
// binds to in the parameter bus.
func Returns(names ...string) StepOption {
	return func(d *Descriptor) {
		d.DeclaredReturns = append([]string(nil), names...)
	}
}

// Overrides pins specific kwargs to fixed values regardless of the bus or
// defaults (spec.md §3 input_overrides).
func Overrides(values map[string]any) StepOption {
	return func(d *Descriptor) {
		d.InputOverrides = cloneDefaults(values)
	}
}

// Frames declares which global-context frame names a Transform/Load step's
// subcontext is populated with (spec.md §4.7). An empty declaration means
// the step receives the global context itself, read/write.
func Frames(names ...string) StepOption {
	return func(d *Descriptor) {
		d.DeclaredFrames = append([]string(nil), names...)
	}
}

// ChunkSize marks an Extract step as a chunking extractor with the given
// chunk size. totalRows reports the extractor's row count (spec.md §6
// "max_row_count"), used to seed the chunk coordinator's ChunkRecord; it is
// called once, at coordinator construction time.
func ChunkSize(n int, totalRows func() int) StepOption {
	return func(d *Descriptor) {
		v := n
		d.ChunkSize = &v
		d.TotalRows = totalRows
	}
}

// WithExistsPolicy sets a Load step's exists policy (default ExistsFail if
// never set).
func WithExistsPolicy(p ExistsPolicy) StepOption {
	return func(d *Descriptor) {
		v := p
		d.ExistsPolicy = &v
	}
}

// UpdateReturns appends an additional declared return name, used by steps
// (e.g. aggregations) whose emitted scalar name isn't visible in source
// (spec.md §4.3 "Return-name extension").
func UpdateReturns(name string) StepOption {
	return func(d *Descriptor) {
		d.DeclaredReturns = append(d.DeclaredReturns, name)
	}
}

// OverrideReturns replaces the declared return list outright.
func OverrideReturns(names ...string) StepOption {
	return func(d *Descriptor) {
		d.DeclaredReturns = append([]string(nil), names...)
	}
}

// NeedsContext forces NeedsContext even when "context" is absent from an
// explicit Params() list (rarely needed; Params already infers this).
func NeedsContext() StepOption {
	return func(d *Descriptor) {
		d.NeedsContext = true
	}
}

// Source overrides the fingerprint text the checkpoint store hashes to
// detect step drift (spec.md §4.5). When omitted, newStep falls back to a
// best-effort extraction of fn's Go source.
func Source(text string) StepOption {
	return func(d *Descriptor) {
		d.source = text
	}
}

func newStep(name string, capability Capability, fn StepFunc, opts []StepOption) Step {
	d := &Descriptor{
		Name:          name,
		DefaultParams: map[string]any{},
		Capability:    capability,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.DefaultParams == nil {
		d.DefaultParams = map[string]any{}
	}
	if d.InputOverrides == nil {
		d.InputOverrides = map[string]any{}
	}
	if d.source == "" {
		d.source = sourceOfFunc(fn)
	}
	return &step{descriptor: d, fn: fn}
}

// NewExtractStep builds an Extract step. fn's Result must be ResultContext
// (or, rarely, ResultContextMap when multiple named frames are produced).
func NewExtractStep(name string, fn StepFunc, opts ...StepOption) Step {
	return newStep(name, CapabilityExtract, fn, opts)
}

// NewTransformStep builds a Transform step. fn's Result may be any of
// ResultContext, ResultContextMap, ResultScalar or ResultTuple.
func NewTransformStep(name string, fn StepFunc, opts ...StepOption) Step {
	return newStep(name, CapabilityTransform, fn, opts)
}

// NewLoadStep builds a Load step. fn's Result is ignored by the
// orchestrator; ExistsPolicy defaults to ExistsFail unless overridden.
func NewLoadStep(name string, fn StepFunc, opts ...StepOption) Step {
	s := newStep(name, CapabilityLoad, fn, opts)
	if s.Descriptor().ExistsPolicy == nil {
		p := ExistsFail
		s.Descriptor().ExistsPolicy = &p
	}
	return s
}

// MultiExtractStep bundles several Extract steps that must be registered
// together and decomposed into individual entries in the StepIndex
// (spec.md §3 "A MultiExtract is decomposed into its member extractors").
type MultiExtractStep struct {
	name    string
	members []Step
}

// NewMultiExtractStep groups extractors that should register as a single
// logical unit but execute (and chunk) independently.
func NewMultiExtractStep(name string, members ...Step) *MultiExtractStep {
	return &MultiExtractStep{name: name, members: members}
}

// Name returns the group's name (used only for target-reconciliation
// bookkeeping; each member keeps its own descriptor name).
func (m *MultiExtractStep) Name() string { return m.name }

// Members returns the member extractors in declaration order.
func (m *MultiExtractStep) Members() []Step {
	return append([]Step(nil), m.members...)
}
