package rediset

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/rediset/store"
	"github.com/unkn0wn-root/rediset/store/memory"
)

type call struct {
	method string
	key    string
}

// recorder wraps a store and records every call with the key it touched.
type recorder struct {
	store.Store

	mu    sync.Mutex
	calls []call
	fail  map[string]error // method -> injected error
}

var _ store.Store = (*recorder)(nil)

func newRecorder(inner store.Store) *recorder {
	return &recorder{Store: inner, fail: make(map[string]error)}
}

func (r *recorder) record(method, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{method: method, key: key})
	return r.fail[method]
}

func (r *recorder) failOn(method string, err error) {
	r.mu.Lock()
	r.fail[method] = err
	r.mu.Unlock()
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (r *recorder) countKey(method, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.method == method && c.key == key {
			n++
		}
	}
	return n
}

// touched reports whether any call referenced key.
func (r *recorder) touched(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.key == key {
			return true
		}
	}
	return false
}

func (r *recorder) Add(ctx context.Context, key string, members ...string) error {
	if err := r.record("Add", key); err != nil {
		return err
	}
	return r.Store.Add(ctx, key, members...)
}

func (r *recorder) Remove(ctx context.Context, key string, members ...string) error {
	if err := r.record("Remove", key); err != nil {
		return err
	}
	return r.Store.Remove(ctx, key, members...)
}

func (r *recorder) ZAdd(ctx context.Context, key string, members ...store.Z) error {
	if err := r.record("ZAdd", key); err != nil {
		return err
	}
	return r.Store.ZAdd(ctx, key, members...)
}

func (r *recorder) Exists(ctx context.Context, key string) (bool, error) {
	if err := r.record("Exists", key); err != nil {
		return false, err
	}
	return r.Store.Exists(ctx, key)
}

func (r *recorder) Card(ctx context.Context, key string) (int64, error) {
	if err := r.record("Card", key); err != nil {
		return 0, err
	}
	return r.Store.Card(ctx, key)
}

func (r *recorder) ZCard(ctx context.Context, key string) (int64, error) {
	if err := r.record("ZCard", key); err != nil {
		return 0, err
	}
	return r.Store.ZCard(ctx, key)
}

func (r *recorder) IsMember(ctx context.Context, key, member string) (bool, error) {
	if err := r.record("IsMember", key); err != nil {
		return false, err
	}
	return r.Store.IsMember(ctx, key, member)
}

func (r *recorder) Members(ctx context.Context, key string) ([]string, error) {
	if err := r.record("Members", key); err != nil {
		return nil, err
	}
	return r.Store.Members(ctx, key)
}

func (r *recorder) ZRange(ctx context.Context, key string, start, stop int64, desc bool) ([]string, error) {
	if err := r.record("ZRange", key); err != nil {
		return nil, err
	}
	return r.Store.ZRange(ctx, key, start, stop, desc)
}

func (r *recorder) ZRangeWithScores(ctx context.Context, key string, start, stop int64, desc bool) ([]store.Z, error) {
	if err := r.record("ZRangeWithScores", key); err != nil {
		return nil, err
	}
	return r.Store.ZRangeWithScores(ctx, key, start, stop, desc)
}

func (r *recorder) Materialize(ctx context.Context, m store.Materialization) error {
	r.mu.Lock()
	for _, src := range m.Sources {
		r.calls = append(r.calls, call{method: "MaterializeSource", key: src})
	}
	r.mu.Unlock()
	if err := r.record("Materialize", m.Dest); err != nil {
		return err
	}
	return r.Store.Materialize(ctx, m)
}

func (r *recorder) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := r.record("Del", k); err != nil {
			return err
		}
	}
	return r.Store.Del(ctx, keys...)
}

// clock is a manually advanced time source for expiry tests.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Unix(1_700_000_000, 0)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingHooks counts evaluator events.
type countingHooks struct {
	mu           sync.Mutex
	hits         []string
	misses       []string
	materialized []string
	storeErrs    []string
	usage        []string
}

func (h *countingHooks) CacheHit(key string) {
	h.mu.Lock()
	h.hits = append(h.hits, key)
	h.mu.Unlock()
}

func (h *countingHooks) CacheMiss(key string) {
	h.mu.Lock()
	h.misses = append(h.misses, key)
	h.mu.Unlock()
}

func (h *countingHooks) Materialized(key, _ string, _, _ time.Duration) {
	h.mu.Lock()
	h.materialized = append(h.materialized, key)
	h.mu.Unlock()
}

func (h *countingHooks) StoreError(stage, _ string, _ error) {
	h.mu.Lock()
	h.storeErrs = append(h.storeErrs, stage)
	h.mu.Unlock()
}

func (h *countingHooks) UsageRejected(op, _ string) {
	h.mu.Lock()
	h.usage = append(h.usage, op)
	h.mu.Unlock()
}

type testEnv struct {
	rs    *Rediset
	rec   *recorder
	mem   *memory.Memory
	clock *clock
	hooks *countingHooks
}

func newEnv(t interface {
	Helper()
	Fatalf(string, ...any)
	Cleanup(func())
}, mutate func(*Options)) *testEnv {
	t.Helper()
	clk := newClock()
	mem := memory.New(memory.Options{Now: clk.Now})
	rec := newRecorder(mem)
	hooks := &countingHooks{}
	opts := Options{Store: rec, Hooks: hooks}
	if mutate != nil {
		mutate(&opts)
	}
	rs, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close(context.Background()) })
	return &testEnv{rs: rs, rec: rec, mem: mem, clock: clk, hooks: hooks}
}
