package pipeline

import (
	gocontext "context"
	"fmt"
	"time"
)

// Mode gates whether Load steps execute (spec.md §6 "Modes").
type Mode string

const (
	DEV  Mode = "DEV"
	PROD Mode = "PROD"
)

// StepSummary is the read-only introspection view of one registered step,
// returned by Pipeline.Steps.
type StepSummary struct {
	Key        string
	Name       string
	Capability Capability
	Ordinal    int
}

// Pipeline is the orchestrator of spec.md §4.7: it holds the registered
// steps, the parameter bus, the global context, and the optional cache and
// chunker collaborators, and executes steps in StepIndex order.
type Pipeline struct {
	steps  *StepIndex
	bus    *ParameterBus
	global *Context

	cache   FullCache
	chunker Chunker

	targetExtract any // Step or *MultiExtractStep
	targetLoad    Step

	mode    Mode
	logger  Logger
	metrics MetricsRecorder

	checkedTargets bool
}

// NewPipeline returns an empty Pipeline in PROD mode with no-op logging and
// metrics; callers opt into pkg/logging and pkg/metrics via SetLogger and
// SetMetrics.
func NewPipeline() *Pipeline {
	return &Pipeline{
		steps:   NewStepIndex(),
		bus:     NewParameterBus(),
		global:  NewContext("globalcontext"),
		mode:    PROD,
		logger:  nopLogger{},
		metrics: nopMetrics{},
	}
}

// AddStep registers s, a Step or *MultiExtractStep, assigning it the next
// ordinal and step key. A MultiExtractStep decomposes into its member
// extractors (spec.md §3, §4.7 "Registration").
func (p *Pipeline) AddStep(s any) ([]string, error) {
	if _, ok := s.(*MultiExtractStep); !ok {
		if err := RequireStep("add_step", s); err != nil {
			return nil, err
		}
	}
	return p.steps.Add(s, p.bus), nil
}

// SetTargetExtract designates the step (or MultiExtractStep) moved to the
// front of the StepIndex on the first Execute.
func (p *Pipeline) SetTargetExtract(v any) error {
	if _, ok := v.(*MultiExtractStep); ok {
		p.targetExtract = v
		p.logger.Infof("target extract set")
		return nil
	}
	if err := RequireExtractor("target_extract", v); err != nil {
		return err
	}
	p.targetExtract = v
	p.logger.Infof("target extract set")
	return nil
}

// SetTargetLoad designates the step moved to the end of the StepIndex on
// the first Execute.
func (p *Pipeline) SetTargetLoad(v any) error {
	if err := RequireLoader("target_load", v); err != nil {
		return err
	}
	p.targetLoad = v.(Step)
	p.logger.Infof("target load set")
	return nil
}

// SetCache attaches the resumable checkpoint cache.
func (p *Pipeline) SetCache(c FullCache) { p.cache = c }

// SetChunker attaches the chunk coordinator.
func (p *Pipeline) SetChunker(c Chunker) { p.chunker = c }

// SetMode sets DEV or PROD; any other value is rejected (spec.md §6).
func (p *Pipeline) SetMode(m Mode) error {
	if m != DEV && m != PROD {
		return fmt.Errorf("pipeline: invalid mode %q", m)
	}
	p.mode = m
	return nil
}

// SetLogger overrides the no-op default logger.
func (p *Pipeline) SetLogger(l Logger) {
	if l != nil {
		p.logger = l
	}
}

// SetMetrics overrides the no-op default metrics recorder.
func (p *Pipeline) SetMetrics(m MetricsRecorder) {
	if m != nil {
		p.metrics = m
	}
}

// Bus returns the pipeline's parameter bus.
func (p *Pipeline) Bus() *ParameterBus { return p.bus }

// GlobalContext returns the pipeline's global context.
func (p *Pipeline) GlobalContext() *Context { return p.global }

// StepIndex exposes the underlying StepIndex so a collaborator built
// outside the pipeline package — such as internal/chunk's Coordinator —
// can be constructed against the exact same registration the orchestrator
// will execute.
func (p *Pipeline) StepIndex() *StepIndex { return p.steps }

// Steps returns a read-only summary of every registered step in execution
// order.
func (p *Pipeline) Steps() []StepSummary {
	keys := p.steps.Keys()
	out := make([]StepSummary, 0, len(keys))
	for _, key := range keys {
		step, ok := p.steps.Get(key)
		if !ok {
			continue
		}
		d := step.Descriptor()
		out = append(out, StepSummary{Key: key, Name: d.Name, Capability: d.Capability, Ordinal: d.Ordinal()})
	}
	return out
}

// ResumePoint reports the checkpoint key Execute would resume from if
// invoked right now, for read-only introspection (internal/server exposes
// this at /v1/checkpoint/resume-point). It returns ok=false when no cache
// is attached or no usable checkpoint exists.
func (p *Pipeline) ResumePoint() (string, bool) {
	if p.cache == nil {
		return "", false
	}
	return p.cache.ResumePoint(p.steps)
}

// reconcileTargets performs the once-only target reconciliation of
// spec.md §4.7: move target_extract to the front, target_load to the back.
func (p *Pipeline) reconcileTargets() error {
	if p.checkedTargets {
		return nil
	}
	p.checkedTargets = true

	if p.targetExtract == nil && p.mode == PROD {
		return fmt.Errorf("pipeline: PROD mode requires a target extract step")
	}

	if p.targetExtract != nil {
		var keys []string
		switch v := p.targetExtract.(type) {
		case *MultiExtractStep:
			for _, member := range v.Members() {
				keys = append(keys, member.Descriptor().Key())
			}
		case Step:
			keys = append(keys, v.Descriptor().Key())
		}
		p.steps.moveToFront(keys)
	}
	if p.targetLoad != nil {
		p.steps.moveToBack(p.targetLoad.Descriptor().Key())
	}
	return nil
}

// buildSubcontext constructs the Context a "context"-declaring step
// receives (spec.md §4.7 "Subcontext construction").
func (p *Pipeline) buildSubcontext(d *Descriptor) *Context {
	if d.Capability == CapabilityExtract {
		return NewContext(d.Name + "_subcontext")
	}
	if len(d.DeclaredFrames) == 0 {
		return p.global
	}
	return p.global.Subset(d.DeclaredFrames)
}

// resolveKwargs implements the precedence resolution and completeness
// check of spec.md §4.4 for every non-reserved parameter, then injects the
// reserved "context" kwarg when needed.
func (p *Pipeline) resolveKwargs(d *Descriptor) (map[string]any, error) {
	kwargs := make(map[string]any, len(d.ParamNames)+1)
	for _, name := range d.ParamNames {
		if name == reservedContextParam || name == reservedSkipParam || name == reservedTakeParam {
			continue
		}
		val, ok := resolve(name, d.InputOverrides, d.DefaultParams, p.bus)
		if !ok {
			return nil, &MissingParameterError{StepName: d.Name, StepKey: d.Key(), Param: name}
		}
		kwargs[name] = val
	}
	if d.NeedsContext {
		kwargs[reservedContextParam] = p.buildSubcontext(d)
	}
	return kwargs, nil
}

// foldOutput implements spec.md §4.4 "Update" / §4.7 "Output folding".
func (p *Pipeline) foldOutput(d *Descriptor, res Result) {
	switch res.Kind {
	case ResultNone:
		return
	case ResultScalar:
		if len(d.DeclaredReturns) > 0 {
			p.bus.Set(d.DeclaredReturns[0], res.Scalar)
		}
	case ResultTuple:
		for i, v := range res.Tuple {
			if i >= len(d.DeclaredReturns) {
				break
			}
			p.bus.Set(d.DeclaredReturns[i], v)
		}
	case ResultContext:
		p.global.Merge(res.Ctx)
	case ResultContextMap:
		for _, c := range res.CtxMap {
			p.global.Merge(c)
		}
	}
}

// runControlStep services a cache_snapshot/restore_snapshot/reset_cache
// control step directly against the cache handle (Design Notes §9's
// set_state inversion), bypassing the generic kwarg/fold path entirely.
func (p *Pipeline) runControlStep(cs *controlStep) error {
	if p.cache == nil {
		return fmt.Errorf("pipeline: %s requires an attached cache", cs.descriptor.Name)
	}
	switch cs.kind {
	case controlCacheSnapshot:
		key := p.cache.PutSnapshot(p.bus.Snapshot(), p.global.Clone())
		if len(cs.descriptor.DeclaredReturns) > 0 {
			p.bus.Set(cs.descriptor.DeclaredReturns[0], key)
		}
	case controlRestoreSnapshot:
		bus, global, ok := p.cache.GetSnapshot(cs.restoreKey)
		if !ok {
			return fmt.Errorf("pipeline: no snapshot at key %d", cs.restoreKey)
		}
		p.bus.Restore(bus)
		if global != nil {
			p.global = global
		}
	case controlResetCache:
		return p.cache.Reset(cs.deleteDir)
	}
	return nil
}

// isFrameworkError reports whether err was raised by the step runtime
// itself (as opposed to the step body), so Execute doesn't double-wrap it
// as a UserError.
func isFrameworkError(err error) bool {
	switch err.(type) {
	case *MissingParameterError, *ArityMismatchError:
		return true
	default:
		return false
	}
}

// Execute runs the pipeline to completion: target reconciliation, resume
// from checkpoint, the main execution loop, and — when a chunker is
// attached — re-driving the loop until the coordinate queue is drained
// (spec.md §4.7 "Execution loop"). ctx is observed only between steps
// (spec.md §5 "Cancellation"); it is not passed to step bodies, and no
// "cancel" metadata is set on the subcontexts they receive.
func (p *Pipeline) Execute(ctx gocontext.Context) error {
	if err := p.reconcileTargets(); err != nil {
		return err
	}

	startIdx := 0
	if p.cache != nil {
		if key, ok := p.cache.ResumePoint(p.steps); ok {
			bus, global, err := p.cache.Load(key)
			if err != nil {
				return err
			}
			p.bus.Restore(bus)
			if global != nil {
				p.global = global
			}
			startIdx = p.steps.IndexOf(key) + 1
			p.logger.Infof("resuming from checkpoint %s", key)
			p.metrics.CacheHit(key)
		} else {
			p.logger.Infof("no usable checkpoint, starting from the beginning")
			p.metrics.CacheMiss("")
		}
	}

	if p.chunker != nil {
		p.chunker.Snapshot(p.bus, p.global)
	}

	if err := p.runPass(ctx, startIdx); err != nil {
		return err
	}

	for p.chunker != nil && p.chunker.KeepExecuting() {
		busSnap, globalSnap := p.chunker.RestoreSnapshot()
		p.bus.Restore(busSnap)
		if globalSnap != nil {
			p.global = globalSnap
		}
		if err := p.runPass(ctx, 0); err != nil {
			return err
		}
	}
	return nil
}

// runPass executes one traversal of the StepIndex starting at startIdx.
func (p *Pipeline) runPass(ctx gocontext.Context, startIdx int) error {
	keys := p.steps.Keys()
	for i := startIdx; i < len(keys); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		key := keys[i]
		step, ok := p.steps.Get(key)
		if !ok {
			continue
		}
		d := step.Descriptor()

		if cs, ok := step.(*controlStep); ok {
			if err := p.runControlStep(cs); err != nil {
				return err
			}
			if p.cache != nil && cs.kind != controlResetCache {
				if err := p.cache.Store(p.steps, p.bus, p.global, key); err != nil {
					return err
				}
			}
			continue
		}

		if p.mode == DEV && d.Capability == CapabilityLoad {
			continue
		}

		kwargs, err := p.resolveKwargs(d)
		if err != nil {
			return err
		}

		if p.chunker != nil && d.Capability == CapabilityExtract && d.ChunkSize != nil {
			coord, ok := p.chunker.Dequeue()
			if ok {
				kwargs[reservedSkipParam] = coord.Skip
				kwargs[reservedTakeParam] = coord.Take
				p.metrics.ChunkIteration(d.Name, coord.Skip, coord.Take)
			}
		}

		start := time.Now()
		res, err := step.Invoke(kwargs)
		p.metrics.StepExecuted(d.Name, d.Capability, time.Since(start), err)
		if err != nil {
			if isFrameworkError(err) {
				return err
			}
			return &UserError{StepName: d.Name, StepKey: d.Key(), Ordinal: d.Ordinal(), Cause: err}
		}

		p.foldOutput(d, res)

		if p.cache != nil {
			if err := p.cache.Store(p.steps, p.bus, p.global, key); err != nil {
				return err
			}
		}
	}
	return nil
}
