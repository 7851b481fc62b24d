package checkpoint

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/example/dataflow-engine/internal/pipeline"
)

func init() {
	// snapshotValue flows through the LFU's lfuStateEntry.Value (an `any`)
	// into every on-disk checkpoint blob, so gob needs the concrete type
	// registered the same way frame.Frame implementations are.
	gob.Register(snapshotValue{})
}

// Store is the resumable checkpoint cache of spec.md §4.5: an in-memory LFU
// used by snapshot/restore control steps (role A) fronting an on-disk
// manifest + blob store used for resumable execution (role B).
type Store struct {
	mu  sync.Mutex
	dir string
	lfu *lfu
	man *manifest
}

// snapshotValue is the pair an in-memory Put/Get round-trips, mirroring
// spec.md's "{parameter_index, globalcontext}" normalization.
type snapshotValue struct {
	Bus    map[string]any
	Global *pipeline.Context
}

// NewStore opens (or creates) a checkpoint store rooted at dir, with an
// in-memory LFU of the given capacity.
func NewStore(dir string, lfuCapacity int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	m, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, lfu: newLFU(lfuCapacity), man: m}, nil
}

var (
	_ pipeline.Cache         = (*Store)(nil)
	_ pipeline.SnapshotCache = (*Store)(nil)
	_ pipeline.FullCache     = (*Store)(nil)
)

func sourceHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (s *Store) blobPath(stepKey string) string {
	return filepath.Join(s.dir, stepKey+".blob.gz")
}

// PutSnapshot stores (bus, global) in the in-memory LFU, returning the
// assigned key. Used by the cache_snapshot control step.
func (s *Store) PutSnapshot(bus map[string]any, global *pipeline.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, _, _ := s.lfu.Put(snapshotValue{Bus: bus, Global: global})
	return key
}

// GetSnapshot retrieves a previously Put snapshot by key. Used by the
// restore_snapshot control step.
func (s *Store) GetSnapshot(key int) (bus map[string]any, global *pipeline.Context, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lfu.Get(key)
	if !ok {
		return nil, nil, false
	}
	val := v.(snapshotValue)
	return val.Bus, val.Global, true
}

// Store persists (bus, global) as the checkpoint for stepKey, which must
// already be registered in index. It fingerprints the step's source,
// replaces any stale entry at the same ordinal, writes the blob, and only
// then atomically rewrites the manifest (spec.md §4.5.B, §5 "Transactions").
func (s *Store) Store(index *pipeline.StepIndex, bus *pipeline.ParameterBus, global *pipeline.Context, stepKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordinal := index.IndexOf(stepKey)
	if ordinal < 0 {
		return nil
	}
	step, ok := index.Get(stepKey)
	if !ok {
		return nil
	}
	source := step.Descriptor().Source()
	hash := sourceHash(source)

	if prev, ok := s.man.entryAt(ordinal); ok && prev.Key != "" {
		if prev.Key != stepKey || prev.SourceHash != hash {
			_ = os.Remove(s.blobPath(prev.Key))
		}
	}

	blob, err := encodeSnapshot(snapshot{Bus: bus.Snapshot(), Global: global, LFU: s.lfu.exportState()})
	if err != nil {
		return err
	}
	tmp := s.blobPath(stepKey) + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.blobPath(stepKey)); err != nil {
		return err
	}

	s.man.upsertAt(ordinal, manifestEntry{Key: stepKey, Source: source, SourceHash: hash})
	s.man.LastCompletedStep = stepKey
	return s.man.save(s.dir)
}

// Load reads back the checkpoint for stepKey, also restoring the in-memory
// LFU to the state it held when the checkpoint was written, so a
// restore_snapshot control step re-run after this resume still sees
// snapshots Put in the pre-crash run. A missing or unreadable blob is
// reported as CacheCorruptionError (spec.md §7 "CacheCorruption");
// Pipeline.Execute returns that error to its caller rather than falling
// back to an earlier checkpoint.
func (s *Store) Load(stepKey string) (map[string]any, *pipeline.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.blobPath(stepKey))
	if err != nil {
		return nil, nil, &pipeline.CacheCorruptionError{StepKey: stepKey, Cause: err}
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, nil, &pipeline.CacheCorruptionError{StepKey: stepKey, Cause: err}
	}
	s.lfu.importState(snap.LFU)
	return snap.Bus, snap.Global, nil
}

// ResumePoint walks the manifest and index in parallel ordinal order and
// returns the last step key where both identity and source fingerprint
// still match, up to and including last_completed_step. A divergence at
// the first step means restart from scratch (spec.md §4.5.B).
func (s *Store) ResumePoint(index *pipeline.StepIndex) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := index.Keys()
	var lastMatch string
	matched := false

	for i, key := range keys {
		entry, ok := s.man.entryAt(i)
		if !ok {
			break
		}
		step, ok := index.Get(key)
		if !ok {
			break
		}
		source := step.Descriptor().Source()
		hash := sourceHash(source)
		if entry.Key != key || entry.SourceHash != hash || entry.Source != source {
			if i == 0 {
				return "", false
			}
			return lastMatch, matched
		}
		lastMatch, matched = key, true
		if key == s.man.LastCompletedStep {
			break
		}
	}
	return lastMatch, matched
}

// Reset clears the in-memory LFU and, when deleteDir is true, purges the
// on-disk manifest and every blob (spec.md §4.5.B "reset").
func (s *Store) Reset(deleteDir bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lfu.Reset()
	if !deleteDir {
		return nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	s.man = &manifest{}
	return nil
}
