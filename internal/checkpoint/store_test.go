package checkpoint_test

import (
	"testing"

	"github.com/example/dataflow-engine/internal/checkpoint"
	"github.com/example/dataflow-engine/internal/pipeline"
)

func buildTwoStepIndex(t *testing.T, firstSource string) (*pipeline.StepIndex, *pipeline.ParameterBus, pipeline.Step, pipeline.Step) {
	t.Helper()
	idx := pipeline.NewStepIndex()
	bus := pipeline.NewParameterBus()

	first := pipeline.NewExtractStep("first", func(map[string]any) (pipeline.Result, error) {
		return pipeline.NoResult(), nil
	}, pipeline.Source(firstSource))
	second := pipeline.NewTransformStep("second", func(map[string]any) (pipeline.Result, error) {
		return pipeline.NoResult(), nil
	}, pipeline.Source("func second() {}"))

	idx.Add(first, bus)
	idx.Add(second, bus)
	return idx, bus, first, second
}

func TestStore_StoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, 10)
	if err != nil {
		t.Fatalf("NewStore に失敗しました: %v", err)
	}

	idx, bus, first, _ := buildTwoStepIndex(t, "func first() {}")
	bus.Set("seen", 123)
	global := pipeline.NewContext("globalcontext")

	if err := store.Store(idx, bus, global, first.Descriptor().Key()); err != nil {
		t.Fatalf("Store に失敗しました: %v", err)
	}

	loadedBus, loadedGlobal, err := store.Load(first.Descriptor().Key())
	if err != nil {
		t.Fatalf("Load に失敗しました: %v", err)
	}
	if loadedBus["seen"] != 123 {
		t.Fatalf("復元したバスの値が一致しません: %#v", loadedBus["seen"])
	}
	if loadedGlobal.Name() != global.Name() {
		t.Fatalf("復元した globalcontext の name が一致しません: %q", loadedGlobal.Name())
	}
}

func TestStore_LoadUnknownStepReportsCacheCorruption(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, 10)
	if err != nil {
		t.Fatalf("NewStore に失敗しました: %v", err)
	}

	_, _, err = store.Load("does-not-exist")
	var corrupt *pipeline.CacheCorruptionError
	if err == nil {
		t.Fatal("存在しないステップの Load がエラーになりません")
	}
	if !asCacheCorruption(err, &corrupt) {
		t.Fatalf("返ってきたエラーが CacheCorruptionError ではありません: %T", err)
	}
}

func asCacheCorruption(err error, target **pipeline.CacheCorruptionError) bool {
	if ce, ok := err.(*pipeline.CacheCorruptionError); ok {
		*target = ce
		return true
	}
	return false
}

func TestStore_ResumePointStopsAtFirstDivergence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, 10)
	if err != nil {
		t.Fatalf("NewStore に失敗しました: %v", err)
	}

	idx, bus, first, second := buildTwoStepIndex(t, "func first() {}")
	global := pipeline.NewContext("globalcontext")

	if err := store.Store(idx, bus, global, first.Descriptor().Key()); err != nil {
		t.Fatalf("first の Store に失敗しました: %v", err)
	}
	if err := store.Store(idx, bus, global, second.Descriptor().Key()); err != nil {
		t.Fatalf("second の Store に失敗しました: %v", err)
	}

	key, ok := store.ResumePoint(idx)
	if !ok || key != second.Descriptor().Key() {
		t.Fatalf("両ステップ一致のケースで resume_point が second になりません: key=%q ok=%v", key, ok)
	}

	// rebuild the index with first's source changed: source drift should
	// invalidate everything from "first" onward, even though "first" was
	// itself checkpointed under the old source.
	driftedIdx, _, driftedFirst, _ := buildTwoStepIndex(t, "func first() { /* changed */ }")
	_ = driftedFirst

	if _, ok := store.ResumePoint(driftedIdx); ok {
		t.Fatal("最初のステップのソースが変化しているのに resume_point が見つかっています")
	}
}

func TestStore_LoadRestoresLFUStateAcrossProcessRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, 10)
	if err != nil {
		t.Fatalf("NewStore に失敗しました: %v", err)
	}

	idx, bus, first, _ := buildTwoStepIndex(t, "func first() {}")
	global := pipeline.NewContext("globalcontext")

	snapshotKey := store.PutSnapshot(map[string]any{"a": 1}, pipeline.NewContext("snapshot-before-crash"))
	if err := store.Store(idx, bus, global, first.Descriptor().Key()); err != nil {
		t.Fatalf("Store に失敗しました: %v", err)
	}

	// simulate a process restart: a fresh Store over the same dir starts
	// with an empty in-memory LFU until Load restores it.
	resumed, err := checkpoint.NewStore(dir, 10)
	if err != nil {
		t.Fatalf("再起動後の NewStore に失敗しました: %v", err)
	}
	if _, _, ok := resumed.GetSnapshot(snapshotKey); ok {
		t.Fatal("Load 前から GetSnapshot が成功しています")
	}

	if _, _, err := resumed.Load(first.Descriptor().Key()); err != nil {
		t.Fatalf("Load に失敗しました: %v", err)
	}

	gotBus, gotGlobal, ok := resumed.GetSnapshot(snapshotKey)
	if !ok {
		t.Fatal("Load 後に再起動前の GetSnapshot が復元されていません")
	}
	if gotBus["a"] != 1 {
		t.Fatalf("復元したスナップショットのバスが一致しません: %#v", gotBus["a"])
	}
	if gotGlobal.Name() != "snapshot-before-crash" {
		t.Fatalf("復元したスナップショットの globalcontext が一致しません: %q", gotGlobal.Name())
	}
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, 10)
	if err != nil {
		t.Fatalf("NewStore に失敗しました: %v", err)
	}

	idx, bus, first, _ := buildTwoStepIndex(t, "func first() {}")
	global := pipeline.NewContext("globalcontext")
	if err := store.Store(idx, bus, global, first.Descriptor().Key()); err != nil {
		t.Fatalf("Store に失敗しました: %v", err)
	}

	if err := store.Reset(true); err != nil {
		t.Fatalf("Reset に失敗しました: %v", err)
	}

	if _, ok := store.ResumePoint(idx); ok {
		t.Fatal("Reset(deleteDir=true) 後も resume_point が残っています")
	}
}

func TestStore_SnapshotPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, 10)
	if err != nil {
		t.Fatalf("NewStore に失敗しました: %v", err)
	}

	bus := map[string]any{"a": 1}
	global := pipeline.NewContext("globalcontext")

	key := store.PutSnapshot(bus, global)
	gotBus, gotGlobal, ok := store.GetSnapshot(key)
	if !ok {
		t.Fatal("PutSnapshot 直後の GetSnapshot が見つかりません")
	}
	if gotBus["a"] != 1 {
		t.Fatalf("スナップショットのバスが一致しません: %#v", gotBus["a"])
	}
	if gotGlobal.Name() != "globalcontext" {
		t.Fatalf("スナップショットの globalcontext が一致しません: %q", gotGlobal.Name())
	}
}
