package pipeline

// ResultKind tags the shape of a step's return value (Design Notes §9:
// "model the step return as a sum type rather than relying on runtime type
// tests").
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultScalar
	ResultTuple
	ResultContext
	ResultContextMap
)

// Result is the tagged-variant output of a step invocation.
type Result struct {
	Kind   ResultKind
	Scalar any
	Tuple  []any
	Ctx    *Context
	CtxMap map[string]*Context
}

// NoResult is returned by steps (typically Load steps) that produce nothing.
func NoResult() Result { return Result{Kind: ResultNone} }

// ScalarResult wraps a single value aligned with declared_returns[0].
func ScalarResult(v any) Result { return Result{Kind: ResultScalar, Scalar: v} }

// TupleResult wraps a list of values aligned positionally with
// declared_returns.
func TupleResult(values ...any) Result { return Result{Kind: ResultTuple, Tuple: values} }

// ContextResult wraps a produced Context, routed to the global context via
// merge.
func ContextResult(c *Context) Result { return Result{Kind: ResultContext, Ctx: c} }

// ContextMapResult wraps a mapping of named Contexts, each merged into the
// global context.
func ContextMapResult(m map[string]*Context) Result {
	return Result{Kind: ResultContextMap, CtxMap: m}
}

// StepFunc is the callable a Step wraps. kwargs holds the resolved
// arguments for every name in the step's ParamNames, plus the reserved
// "context" entry (a *Context) when the descriptor declares NeedsContext,
// plus "skip"/"take" (*int, possibly nil for a no-op pad pair) for a
// chunking extractor's current iteration.
type StepFunc func(kwargs map[string]any) (Result, error)

// Step wraps a callable with its descriptor and enforces parameter
// completeness and return arity at invocation time (spec.md §4.3).
type Step interface {
	Descriptor() *Descriptor
	Invoke(kwargs map[string]any) (Result, error)
}

type step struct {
	descriptor *Descriptor
	fn         StepFunc
}

// Invoke implements the Start/Body/Stop lifecycle of spec.md §4.3: verify
// completeness, call the callable, and never mutate InputOverrides or
// DefaultParams.
func (s *step) Invoke(kwargs map[string]any) (Result, error) {
	for _, p := range s.descriptor.ParamNames {
		if p == reservedContextParam || p == reservedSkipParam || p == reservedTakeParam {
			continue
		}
		v, ok := kwargs[p]
		if !ok || v == nil {
			return Result{}, &MissingParameterError{
				StepName: s.descriptor.Name,
				StepKey:  s.descriptor.key,
				Param:    p,
			}
		}
	}

	out, err := s.fn(kwargs)
	if err != nil {
		return Result{}, err
	}

	want := len(s.descriptor.DeclaredReturns)
	if want > 0 {
		switch out.Kind {
		case ResultScalar:
			if want != 1 {
				return Result{}, &ArityMismatchError{StepName: s.descriptor.Name, StepKey: s.descriptor.key, Want: want, Got: 1}
			}
		case ResultTuple:
			if len(out.Tuple) != want {
				return Result{}, &ArityMismatchError{StepName: s.descriptor.Name, StepKey: s.descriptor.key, Want: want, Got: len(out.Tuple)}
			}
		}
	}

	return out, nil
}

func (s *step) Descriptor() *Descriptor { return s.descriptor }

var _ Step = (*step)(nil)
