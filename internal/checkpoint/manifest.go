package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const manifestFileName = "config.json"

// manifestEntry records one checkpointed step's identity and fingerprint.
type manifestEntry struct {
	Key        string `json:"key"`
	Source     string `json:"source"`
	SourceHash string `json:"source_hash"`
}

// manifest is the on-disk record of every step checkpointed so far, in
// execution order (spec.md "On-disk layout").
type manifest struct {
	LastCompletedStep string          `json:"last_completed_step"`
	Steps             []manifestEntry `json:"steps"`
}

func loadManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if os.IsNotExist(err) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// save writes the manifest atomically: encode to a temp file in dir, then
// rename over the real path, so a reader never observes a half-written
// manifest (spec.md §5 "Transactions").
func (m *manifest) save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	final := filepath.Join(dir, manifestFileName)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// entryAt returns the manifest entry at the given 0-based ordinal, or
// false if the manifest doesn't reach that far.
func (m *manifest) entryAt(ordinal int) (manifestEntry, bool) {
	if ordinal < 0 || ordinal >= len(m.Steps) {
		return manifestEntry{}, false
	}
	return m.Steps[ordinal], true
}

// upsertAt replaces (or appends) the entry at ordinal, truncating anything
// beyond it: a step's checkpoint always supersedes every step after it.
func (m *manifest) upsertAt(ordinal int, entry manifestEntry) {
	if ordinal < len(m.Steps) {
		m.Steps = m.Steps[:ordinal]
	}
	m.Steps = append(m.Steps, entry)
}
