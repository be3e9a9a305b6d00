package asynchook

import (
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/rediset"
)

type countHooks struct {
	rediset.NopHooks
	mu   sync.Mutex
	keys []string
	gate chan struct{}
}

func (c *countHooks) CacheHit(k string) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.keys = append(c.keys, k)
	c.mu.Unlock()
}

func (c *countHooks) Materialized(k, _ string, _, _ time.Duration) { c.CacheHit(k) }

func (c *countHooks) n() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

func TestClose_DrainsQueuedEvents(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 2, 64)
	for i := 0; i < 20; i++ {
		h.CacheHit("k")
	}
	h.Materialized("m", "union", time.Second, time.Millisecond)
	h.Close()
	if got := inner.n(); got != 21 {
		t.Fatalf("delivered %d events, want 21", got)
	}

	h.CacheHit("late")
	h.Close()
	if got := inner.n(); got != 21 {
		t.Fatalf("event after Close was delivered")
	}
}

func TestFullQueueDrops(t *testing.T) {
	inner := &countHooks{gate: make(chan struct{})}
	h := New(inner, 1, 1)

	// One event blocks the worker, one fills the queue, the rest drop.
	for i := 0; i < 10; i++ {
		h.CacheHit("k")
	}
	close(inner.gate)
	h.Close()
	if got := inner.n(); got < 1 || got > 2 {
		t.Fatalf("delivered %d events, want 1 or 2", got)
	}
}
