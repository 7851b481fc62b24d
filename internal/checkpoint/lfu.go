// Package checkpoint implements the resumable checkpoint cache: an in-memory
// LFU store used by snapshot/restore control steps, plus an on-disk
// manifest + blob store used for resumable execution.
package checkpoint

import (
	"container/list"
	"sort"
)

// lfuEntry is one resident (key, value) pair plus its current frequency
// bucket membership.
type lfuEntry struct {
	key   int
	value any
	freq  int
}

// lfu is a classic O(1) least-frequently-used cache keyed by a monotonic
// integer assigned at Put time: a map of frequency -> list of entries at
// that frequency (ties within a frequency broken by recency), plus a
// running minFreq so eviction never scans.
type lfu struct {
	capacity int
	nextKey  int
	items    map[int]*list.Element
	buckets  map[int]*list.List
	minFreq  int
}

func newLFU(capacity int) *lfu {
	return &lfu{
		capacity: capacity,
		items:    map[int]*list.Element{},
		buckets:  map[int]*list.List{},
	}
}

// Len reports the number of resident entries.
func (c *lfu) Len() int { return len(c.items) }

// Cap reports the configured capacity.
func (c *lfu) Cap() int { return c.capacity }

// Get returns the value for key and bumps its frequency, or reports false
// if key is not resident.
func (c *lfu) Get(key int) (any, bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*lfuEntry)
	c.touch(elem, entry)
	return entry.value, true
}

// Put assigns value a new monotonic key (spec: "monotonic = current size"
// of the cache's lifetime, not its resident count) and inserts it at
// frequency 1, evicting the least-frequently-used resident first if the
// cache is already at capacity. It reports the evicted key when eviction
// occurred.
func (c *lfu) Put(value any) (key int, evicted int, didEvict bool) {
	key = c.nextKey
	c.nextKey++

	if c.capacity > 0 && len(c.items) >= c.capacity {
		evicted, didEvict = c.evict()
	}

	entry := &lfuEntry{key: key, value: value, freq: 1}
	bucket := c.bucketFor(1)
	elem := bucket.PushFront(entry)
	c.items[key] = elem
	c.minFreq = 1
	return key, evicted, didEvict
}

// Keys returns resident keys in no particular order.
func (c *lfu) Keys() []int {
	out := make([]int, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	return out
}

// Reset clears all resident state.
func (c *lfu) Reset() {
	c.items = map[int]*list.Element{}
	c.buckets = map[int]*list.List{}
	c.minFreq = 0
	c.nextKey = 0
}

func (c *lfu) bucketFor(freq int) *list.List {
	b, ok := c.buckets[freq]
	if !ok {
		b = list.New()
		c.buckets[freq] = b
	}
	return b
}

// touch bumps entry's frequency by one, recomputing minFreq if the bucket
// it vacated is now empty (correctness condition of Testable Property 6).
func (c *lfu) touch(elem *list.Element, entry *lfuEntry) {
	oldFreq := entry.freq
	c.buckets[oldFreq].Remove(elem)
	if c.buckets[oldFreq].Len() == 0 {
		delete(c.buckets, oldFreq)
		if c.minFreq == oldFreq {
			c.minFreq = oldFreq + 1
		}
	}
	entry.freq = oldFreq + 1
	next := c.bucketFor(entry.freq)
	c.items[entry.key] = next.PushFront(entry)
}

// evict drops the least-recently-used entry in the minFreq bucket.
func (c *lfu) evict() (int, bool) {
	bucket, ok := c.buckets[c.minFreq]
	if !ok || bucket.Len() == 0 {
		return 0, false
	}
	back := bucket.Back()
	entry := back.Value.(*lfuEntry)
	bucket.Remove(back)
	if bucket.Len() == 0 {
		delete(c.buckets, c.minFreq)
	}
	delete(c.items, entry.key)
	return entry.key, true
}

// lfuStateEntry is one resident entry as carried across a snapshot/restore
// boundary: key, value, and the frequency bucket it belonged to.
type lfuStateEntry struct {
	Key   int
	Value any
	Freq  int
}

// lfuState is the full internal state of an lfu, serialized alongside the
// bus/global-context pair in each on-disk checkpoint blob so a restore after
// a crash can still see snapshots Put before the crash (spec.md §4.5.B,
// §6 "also restore LFU internal state").
type lfuState struct {
	Capacity int
	NextKey  int
	MinFreq  int
	Entries  []lfuStateEntry // grouped by ascending freq, each group MRU-first
}

// exportState captures c's residency, frequency buckets, and eviction
// bookkeeping so importState can reproduce identical Get/Put behavior,
// including which entry the next eviction would pick.
func (c *lfu) exportState() lfuState {
	st := lfuState{Capacity: c.capacity, NextKey: c.nextKey, MinFreq: c.minFreq}

	freqs := make([]int, 0, len(c.buckets))
	for f := range c.buckets {
		freqs = append(freqs, f)
	}
	sort.Ints(freqs)

	for _, f := range freqs {
		for e := c.buckets[f].Front(); e != nil; e = e.Next() {
			entry := e.Value.(*lfuEntry)
			st.Entries = append(st.Entries, lfuStateEntry{Key: entry.key, Value: entry.value, Freq: entry.freq})
		}
	}
	return st
}

// importState replaces c's entire internal state with st, rebuilding each
// frequency bucket in the same MRU-to-LRU order it was exported in.
func (c *lfu) importState(st lfuState) {
	c.capacity = st.Capacity
	c.nextKey = st.NextKey
	c.minFreq = st.MinFreq
	c.items = map[int]*list.Element{}
	c.buckets = map[int]*list.List{}

	var order []int
	groups := map[int][]lfuStateEntry{}
	for _, e := range st.Entries {
		if _, ok := groups[e.Freq]; !ok {
			order = append(order, e.Freq)
		}
		groups[e.Freq] = append(groups[e.Freq], e)
	}

	for _, f := range order {
		bucket := c.bucketFor(f)
		group := groups[f]
		for i := len(group) - 1; i >= 0; i-- {
			se := group[i]
			elem := bucket.PushFront(&lfuEntry{key: se.Key, value: se.Value, freq: se.Freq})
			c.items[se.Key] = elem
		}
	}
}
