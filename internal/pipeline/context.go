package pipeline

import (
	"bytes"
	"encoding/gob"

	"github.com/example/dataflow-engine/pkg/frame"
)

// Context is an ordered mapping of named frames plus a scalar metadata bag.
// It plays two roles: the long-lived global context owned by the
// orchestrator, and an ephemeral subcontext built per stage invocation.
//
// A Context is not safe for concurrent mutation; the orchestrator guarantees
// single-writer discipline (spec.md §4.1).
type Context struct {
	name     string
	frames   map[string]frame.Frame
	order    []string
	metadata map[string]any
	counters struct {
		numFrames int
	}
}

// NewContext returns an empty, named Context.
func NewContext(name string) *Context {
	return &Context{
		name:     name,
		frames:   map[string]frame.Frame{},
		metadata: map[string]any{},
	}
}

// Name returns the context's name.
func (c *Context) Name() string { return c.name }

// Add inserts or replaces the frame under name, updating counters.numFrames.
func (c *Context) Add(name string, f frame.Frame) {
	if _, exists := c.frames[name]; !exists {
		c.order = append(c.order, name)
		c.counters.numFrames++
	}
	c.frames[name] = f
}

// Set replaces an existing frame. If name is absent it behaves like Add.
func (c *Context) Set(name string, f frame.Frame) {
	c.Add(name, f)
}

// Get returns the frame stored under name, or nil if absent.
func (c *Context) Get(name string) frame.Frame {
	return c.frames[name]
}

// Names returns frame names in insertion order.
func (c *Context) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// NumFrames returns counters.numFrames, which must equal len(Names()).
func (c *Context) NumFrames() int {
	return c.counters.numFrames
}

// Metadata returns the value stored under key, or nil with ok=false.
func (c *Context) Metadata(key string) (any, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// SetMetadata stores a scalar metadata value (e.g. a cooperative cancellation
// signal under the recommended key "cancel", per spec.md §5).
func (c *Context) SetMetadata(key string, value any) {
	c.metadata[key] = value
}

// Merge copies every frame from other into c, replacing frames that already
// exist in c and adding the rest (spec.md §4.1).
func (c *Context) Merge(other *Context) {
	if other == nil {
		return
	}
	for _, name := range other.order {
		c.Add(name, other.frames[name])
	}
	for k, v := range other.metadata {
		c.metadata[k] = v
	}
}

// Clone returns a shallow copy of c: frame values are shared by reference
// (assignment-by-value-copy per spec.md §3 is the caller's responsibility
// when the frame payload itself must be duplicated), but the frame map,
// order slice and metadata map are independent.
func (c *Context) Clone() *Context {
	clone := NewContext(c.name)
	clone.order = append(clone.order, c.order...)
	for k, v := range c.frames {
		clone.frames[k] = v
	}
	clone.counters.numFrames = c.counters.numFrames
	for k, v := range c.metadata {
		clone.metadata[k] = v
	}
	return clone
}

// Subset returns a new Context containing only the named frames, copied by
// reference from c. Used to build a stage's subcontext from declared_frames
// (spec.md §4.7).
func (c *Context) Subset(names []string) *Context {
	sub := NewContext(c.name)
	for _, name := range names {
		if f, ok := c.frames[name]; ok {
			sub.Add(name, f)
		}
	}
	return sub
}

// contextWire is the exported mirror of Context's unexported fields, the
// shape gob actually serializes. Concrete frame.Frame implementations stored
// in a Context must be registered with gob.Register before a Context
// crosses the checkpoint codec, exactly as the original relies on dill to
// pickle arbitrary frame payloads.
type contextWire struct {
	Name     string
	Order    []string
	Frames   map[string]frame.Frame
	Metadata map[string]any
}

// GobEncode implements gob.GobEncoder so the checkpoint codec can persist a
// Context despite its fields being unexported.
func (c *Context) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	wire := contextWire{Name: c.name, Order: c.order, Frames: c.frames, Metadata: c.metadata}
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (c *Context) GobDecode(data []byte) error {
	var wire contextWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	c.name = wire.Name
	c.order = wire.Order
	c.frames = wire.Frames
	c.metadata = wire.Metadata
	if c.frames == nil {
		c.frames = map[string]frame.Frame{}
	}
	if c.metadata == nil {
		c.metadata = map[string]any{}
	}
	c.counters.numFrames = len(c.order)
	return nil
}
