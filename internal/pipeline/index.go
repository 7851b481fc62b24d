package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// StepIndex is the insertion-ordered key -> Step mapping of spec.md §3.
// Iteration order equals execution order.
type StepIndex struct {
	order   []string
	entries map[string]Step
}

// NewStepIndex returns an empty StepIndex.
func NewStepIndex() *StepIndex {
	return &StepIndex{entries: map[string]Step{}}
}

// stepKey computes hash(name + "_" + ordinal), per spec.md §3.
func stepKey(name string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", name, ordinal)))
	return hex.EncodeToString(sum[:])
}

// Add assigns ordinal = len(index)+1, computes the step key, and installs
// the step. A *MultiExtractStep decomposes into its members, each added
// individually (spec.md §3/§4.7).
func (idx *StepIndex) Add(s any, bus *ParameterBus) []string {
	switch v := s.(type) {
	case *MultiExtractStep:
		var keys []string
		for _, member := range v.Members() {
			keys = append(keys, idx.addOne(member, bus))
		}
		return keys
	case Step:
		return []string{idx.addOne(v, bus)}
	default:
		panic(fmt.Sprintf("pipeline: StepIndex.Add: unsupported value of type %T", s))
	}
}

func (idx *StepIndex) addOne(s Step, bus *ParameterBus) string {
	d := s.Descriptor()
	ordinal := len(idx.order) + 1
	key := stepKey(d.Name, ordinal)
	d.key = key
	d.ordinal = ordinal

	idx.order = append(idx.order, key)
	idx.entries[key] = s

	if bus != nil {
		for _, p := range d.ParamNames {
			if p == reservedContextParam {
				continue
			}
			bus.Introduce(p)
		}
	}
	return key
}

// Keys returns step keys in execution order.
func (idx *StepIndex) Keys() []string {
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

// Len returns the number of registered steps.
func (idx *StepIndex) Len() int { return len(idx.order) }

// Get returns the step registered under key.
func (idx *StepIndex) Get(key string) (Step, bool) {
	s, ok := idx.entries[key]
	return s, ok
}

// At returns the step at the given 0-based position in execution order.
func (idx *StepIndex) At(pos int) (Step, bool) {
	if pos < 0 || pos >= len(idx.order) {
		return nil, false
	}
	return idx.entries[idx.order[pos]], true
}

// IndexOf returns the 0-based position of key, or -1 if absent.
func (idx *StepIndex) IndexOf(key string) int {
	for i, k := range idx.order {
		if k == key {
			return i
		}
	}
	return -1
}

// moveToFront relocates the steps identified by keys (in the given order)
// to the front of the index, preserving the relative order of everything
// else. Used by target reconciliation (spec.md §4.7).
func (idx *StepIndex) moveToFront(keys []string) {
	idx.reorder(keys, true)
}

// moveToBack relocates a single key to the end of the index.
func (idx *StepIndex) moveToBack(key string) {
	idx.reorder([]string{key}, false)
}

func (idx *StepIndex) reorder(keys []string, front bool) {
	if len(keys) == 0 {
		return
	}
	moving := map[string]bool{}
	for _, k := range keys {
		moving[k] = true
	}
	rest := make([]string, 0, len(idx.order))
	for _, k := range idx.order {
		if !moving[k] {
			rest = append(rest, k)
		}
	}
	if front {
		idx.order = append(append([]string(nil), keys...), rest...)
	} else {
		idx.order = append(rest, keys...)
	}
}
