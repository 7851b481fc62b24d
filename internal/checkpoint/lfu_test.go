package checkpoint

import "testing"

func TestLFU_PutAssignsMonotonicIntegerKeys(t *testing.T) {
	t.Parallel()

	c := newLFU(10)
	k1, _, _ := c.Put("a")
	k2, _, _ := c.Put("b")
	k3, _, _ := c.Put("c")

	if k1 != 0 || k2 != 1 || k3 != 2 {
		t.Fatalf("キーが単調増加の整数になっていません: %d %d %d", k1, k2, k3)
	}
}

func TestLFU_GetBumpsFrequencyAndProtectsFromEviction(t *testing.T) {
	t.Parallel()

	c := newLFU(2)
	k1, _, _ := c.Put("a")
	k2, _, _ := c.Put("b")

	// touch k1 so its frequency (2) exceeds k2's frequency (1)
	if _, ok := c.Get(k1); !ok {
		t.Fatal("直後に Put した a が Get できません")
	}

	_, evicted, didEvict := c.Put("c")
	if !didEvict {
		t.Fatal("容量超過で Put しても evict されていません")
	}
	if evicted != k2 {
		t.Fatalf("頻度の低い b ではなく別のキーが evict されました: got %d, want %d", evicted, k2)
	}
	if _, ok := c.Get(k1); !ok {
		t.Fatal("頻度の高かった a が誤って evict されています")
	}
}

func TestLFU_EvictionTiesBreakByRecency(t *testing.T) {
	t.Parallel()

	c := newLFU(2)
	k1, _, _ := c.Put("a")
	k2, _, _ := c.Put("b")
	// both at frequency 1; a is older (LRU within that bucket)

	_, evicted, didEvict := c.Put("c")
	if !didEvict || evicted != k1 {
		t.Fatalf("同一頻度内で最も古いエントリが evict されていません: evicted=%d want=%d", evicted, k1)
	}
	if _, ok := c.Get(k2); !ok {
		t.Fatal("新しい方のエントリ b が誤って evict されています")
	}
}

func TestLFU_GetUnknownKeyReportsFalse(t *testing.T) {
	t.Parallel()

	c := newLFU(1)
	if _, ok := c.Get(999); ok {
		t.Fatal("未登録キーの Get が true を返しています")
	}
}

func TestLFU_ExportImportStateRoundTripsResidencyAndEvictionOrder(t *testing.T) {
	t.Parallel()

	c := newLFU(2)
	k1, _, _ := c.Put("a")
	k2, _, _ := c.Put("b")
	c.Get(k1) // bump a to freq 2, leaving b alone at freq 1 (minFreq)

	restored := newLFU(0)
	restored.importState(c.exportState())

	if restored.Cap() != 2 {
		t.Fatalf("復元後の capacity が一致しません: %d", restored.Cap())
	}
	if v, ok := restored.Get(k1); !ok || v != "a" {
		t.Fatalf("復元後に a が Get できません: %v %v", v, ok)
	}

	_, evicted, didEvict := restored.Put("c")
	if !didEvict || evicted != k2 {
		t.Fatalf("復元後の eviction 順序が一致しません: evicted=%d want=%d", evicted, k2)
	}

	k4, _, _ := restored.Put("d")
	if k4 != 3 {
		t.Fatalf("復元後のキー採番が nextKey から継続していません: got %d, want 3", k4)
	}
}

func TestLFU_Reset(t *testing.T) {
	t.Parallel()

	c := newLFU(2)
	k1, _, _ := c.Put("a")
	c.Reset()

	if _, ok := c.Get(k1); ok {
		t.Fatal("Reset 後も古いキーが Get できています")
	}
	if c.Len() != 0 {
		t.Fatalf("Reset 後も Len が 0 になっていません: %d", c.Len())
	}
	k2, _, _ := c.Put("b")
	if k2 != 0 {
		t.Fatalf("Reset 後のキー採番が 0 から再開していません: %d", k2)
	}
}
