package checkpoint

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/example/dataflow-engine/internal/pipeline"
)

// snapshot is the payload written to one compressed state blob: the
// parameter bus and global context as they stood right after a step
// completed, plus the in-memory LFU's full internal state so a restore
// picks up snapshot/restore control-step history from before a crash
// (spec.md §4.5 "compressed state blob", §6 "(bus, globalcontext,
// lfu_internal_state)").
type snapshot struct {
	Bus    map[string]any
	Global *pipeline.Context
	LFU    lfuState
}

// encodeSnapshot gob-encodes and gzip-compresses s. Any concrete frame.Frame
// or bus-scalar type flowing through the pipeline must be registered with
// gob.Register beforehand, the same obligation Python's dill/pickle placed
// on the original's dataframe payloads.
func encodeSnapshot(s snapshot) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(s); err != nil {
		return nil, err
	}

	var compressed bytes.Buffer
	gw := gzip.NewWriter(&compressed)
	if _, err := gw.Write(raw.Bytes()); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

// decodeSnapshot reverses encodeSnapshot.
func decodeSnapshot(blob []byte) (snapshot, error) {
	gr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return snapshot{}, err
	}
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return snapshot{}, err
	}

	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&s); err != nil {
		return snapshot{}, err
	}
	return s, nil
}
