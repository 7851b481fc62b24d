// Package frame defines the opaque tabular value the orchestrator moves
// between steps. The core never inspects a Frame's payload; all concrete
// tabular operations live in collaborator libraries outside this module.
package frame

import "encoding/gob"

func init() {
	gob.Register(&SimpleFrame{})
}

// Frame is an opaque tabular value. Implementations are expected to be
// gob-encodable when used with a checkpointed pipeline (see
// internal/checkpoint), analogous to the picklability requirement the
// original Python implementation placed on its dataframe payloads.
type Frame interface {
	// Name is the identifier the frame is stored under in a Context.
	Name() string
	// RowCount reports the number of rows currently held by the frame.
	// Chunk coordination does not call it; a chunking extractor's total row
	// count comes from the callback given to pipeline.ChunkSize.
	RowCount() int
	// Payload returns the implementation-defined data handle. The core
	// never calls this; it exists for collaborators (extractors, loaders,
	// the transformation library) to retrieve the concrete tabular value.
	Payload() any
}

// SimpleFrame is a ready-made Frame implementation collaborators may embed
// or use directly for simple in-memory tabular payloads (e.g. a slice of
// rows, a [][]string, or a pointer into a larger dataframe engine's table).
type SimpleFrame struct {
	FrameName string
	Rows      int
	Data      any
}

// NewSimpleFrame constructs a SimpleFrame.
func NewSimpleFrame(name string, rowCount int, data any) *SimpleFrame {
	return &SimpleFrame{FrameName: name, Rows: rowCount, Data: data}
}

func (f *SimpleFrame) Name() string  { return f.FrameName }
func (f *SimpleFrame) RowCount() int { return f.Rows }
func (f *SimpleFrame) Payload() any  { return f.Data }

var _ Frame = (*SimpleFrame)(nil)
