package pipeline

// ParameterBus is the process-wide name -> value map populated by step
// returns and consumed by subsequent steps (spec.md §3, §4.4). A name is
// introduced the first time a step declares it, with a nil value meaning
// "not yet produced".
type ParameterBus struct {
	values map[string]any
}

// NewParameterBus returns an empty bus.
func NewParameterBus() *ParameterBus {
	return &ParameterBus{values: map[string]any{}}
}

// Introduce registers name with a nil value if it is not already present.
// Called at step registration time for every declared param (spec.md §4.7).
func (b *ParameterBus) Introduce(name string) {
	if _, ok := b.values[name]; !ok {
		b.values[name] = nil
	}
}

// Get returns the current value for name (nil if unset or unknown).
func (b *ParameterBus) Get(name string) any {
	return b.values[name]
}

// Set overwrites the value for name, introducing it if necessary.
func (b *ParameterBus) Set(name string, value any) {
	b.values[name] = value
}

// Names returns every name currently tracked by the bus, in no particular
// order (the bus itself carries no ordering guarantee; ordering lives in the
// StepIndex that produced these names).
func (b *ParameterBus) Names() []string {
	out := make([]string, 0, len(b.values))
	for k := range b.values {
		out = append(out, k)
	}
	return out
}

// Reset clears every tracked name and value. Only the orchestrator's
// explicit pipeline reset calls this (spec.md §3 "Lifecycle").
func (b *ParameterBus) Reset() {
	b.values = map[string]any{}
}

// Snapshot returns a shallow copy of the bus's underlying map, used by the
// chunk coordinator and checkpoint store to capture/restore state.
func (b *ParameterBus) Snapshot() map[string]any {
	out := make(map[string]any, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Restore replaces the bus's contents with the given snapshot.
func (b *ParameterBus) Restore(snapshot map[string]any) {
	out := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		out[k] = v
	}
	b.values = out
}

// resolve implements the precedence rule of spec.md §4.4 for kwarg p: the
// first non-nil value among overrides[p], bus[p], defaults[p] wins. Returns
// ok=false when all three are nil (MissingParameter territory).
func resolve(p string, overrides, defaults map[string]any, bus *ParameterBus) (any, bool) {
	if v, ok := overrides[p]; ok && v != nil {
		return v, true
	}
	if v := bus.Get(p); v != nil {
		return v, true
	}
	if v, ok := defaults[p]; ok && v != nil {
		return v, true
	}
	return nil, false
}
