package chunk

import "github.com/example/dataflow-engine/internal/pipeline"

// Strategy selects which chunk-coordination algorithm a Coordinator uses.
type Strategy int

const (
	Direct Strategy = iota
	Recursive
)

// Coordinator implements pipeline.Chunker: a precomputed FIFO of
// coordinates plus the (bus, globalcontext) snapshot chunked execution
// replays from on every pass (spec.md §4.6).
type Coordinator struct {
	numExtractors int
	queue         []pipeline.Coordinate
	pos           int

	snapshotBus    map[string]any
	snapshotGlobal *pipeline.Context
}

// NewCoordinator builds a Coordinator from every chunking extractor in
// index (an Extract step with ChunkSize set), in StepIndex order. It
// rejects any Load step whose exists policy isn't Append, since chunked
// loads can neither replace-on-every-chunk nor fail-if-exists-on-every-
// chunk (spec.md §4.6, §7 ChunkPolicyViolation).
func NewCoordinator(index *pipeline.StepIndex, strategy Strategy) (*Coordinator, error) {
	var records []*ChunkRecord
	for _, key := range index.Keys() {
		step, ok := index.Get(key)
		if !ok {
			continue
		}
		d := step.Descriptor()
		switch d.Capability {
		case pipeline.CapabilityLoad:
			if d.ExistsPolicy == nil || *d.ExistsPolicy != pipeline.ExistsAppend {
				policy := pipeline.ExistsPolicy("")
				if d.ExistsPolicy != nil {
					policy = *d.ExistsPolicy
				}
				return nil, &pipeline.ChunkPolicyViolationError{StepName: d.Name, Policy: policy}
			}
		case pipeline.CapabilityExtract:
			if d.ChunkSize != nil {
				total := 0
				if d.TotalRows != nil {
					total = d.TotalRows()
				}
				records = append(records, NewChunkRecord(*d.ChunkSize, total))
			}
		}
	}

	var raw []Coordinate
	switch strategy {
	case Recursive:
		raw = computeRecursive(records)
	default:
		raw = computeDirect(records)
	}

	queue := make([]pipeline.Coordinate, len(raw))
	for i, c := range raw {
		queue[i] = pipeline.Coordinate{Skip: c.Skip, Take: c.Take}
	}

	return &Coordinator{numExtractors: len(records), queue: queue}, nil
}

// NumExtractors returns the number of chunking extractors the coordinator
// was built from.
func (c *Coordinator) NumExtractors() int { return c.numExtractors }

// Dequeue pops the next coordinate in FIFO order.
func (c *Coordinator) Dequeue() (pipeline.Coordinate, bool) {
	if c.pos >= len(c.queue) {
		return pipeline.Coordinate{}, false
	}
	co := c.queue[c.pos]
	c.pos++
	return co, true
}

// TotalIterations reports the number of full passes the precomputed queue
// represents.
func (c *Coordinator) TotalIterations() int {
	if c.numExtractors == 0 {
		return 0
	}
	return len(c.queue) / c.numExtractors
}

// Remaining reports how many coordinates are left to dequeue.
func (c *Coordinator) Remaining() int {
	return len(c.queue) - c.pos
}

// KeepExecuting reports whether another chunk pass is needed.
func (c *Coordinator) KeepExecuting() bool {
	return c.pos < len(c.queue)
}

// Snapshot captures a copy of (bus, global) on first entering chunked
// execution; every later pass restores from this same snapshot so chunk
// iterations run independently (spec.md §4.6 "State snapshot").
func (c *Coordinator) Snapshot(bus *pipeline.ParameterBus, global *pipeline.Context) {
	c.snapshotBus = bus.Snapshot()
	c.snapshotGlobal = global.Clone()
}

// RestoreSnapshot returns fresh copies of the captured (bus, global).
func (c *Coordinator) RestoreSnapshot() (map[string]any, *pipeline.Context) {
	busCopy := make(map[string]any, len(c.snapshotBus))
	for k, v := range c.snapshotBus {
		busCopy[k] = v
	}
	var globalCopy *pipeline.Context
	if c.snapshotGlobal != nil {
		globalCopy = c.snapshotGlobal.Clone()
	}
	return busCopy, globalCopy
}

var _ pipeline.Chunker = (*Coordinator)(nil)
