package rediset

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/rediset/store"
)

// visit is one node's evaluation within a single top-level read.
type visit struct {
	done chan struct{}
	err  error
}

// scope deduplicates shared subexpressions for the duration of one read.
// It is dropped afterwards: the next read checks the store again, since
// results may have expired in between.
type scope struct {
	mu     sync.Mutex
	visits map[string]*visit
}

// claim returns the visit for key and whether the caller owns it.
func (s *scope) claim(key string) (*visit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.visits[key]; ok {
		return v, false
	}
	v := &visit{done: make(chan struct{})}
	s.visits[key] = v
	return v, true
}

// ensure guarantees that n's result is present in the store.
// Leaves are their own result.
func (r *Rediset) ensure(ctx context.Context, n *node) error {
	if n.op == nil {
		return nil
	}
	sc := &scope{visits: make(map[string]*visit)}
	return r.ensureNode(ctx, n, sc)
}

func (r *Rediset) ensureNode(ctx context.Context, n *node, sc *scope) error {
	if n.op == nil {
		return nil
	}
	v, owner := sc.claim(n.key)
	if !owner {
		select {
		case <-v.done:
			return v.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	v.err = r.evaluate(ctx, n, sc)
	close(v.done)
	return v.err
}

// evaluate checks the cache marker and, on a miss, materializes every child
// before storing n's own result. A hit skips the whole subtree.
func (r *Rediset) evaluate(ctx context.Context, n *node, sc *scope) error {
	var hit bool
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		hit, err = r.store.Exists(ctx, n.op.marker)
		return err
	})
	if err != nil {
		r.storeFailed("exists", n.key, err)
		return err
	}
	if hit {
		r.hooks.CacheHit(n.key)
		r.log.Debug("cache hit", Fields{"key": n.key})
		return nil
	}

	r.hooks.CacheMiss(n.key)
	if err := r.ensureChildren(ctx, n.op.children, sc); err != nil {
		return err
	}

	sources := make([]string, len(n.op.children))
	for i, c := range n.op.children {
		sources[i] = c.Key()
	}
	m := store.Materialization{
		Op:        n.op.kind,
		Sorted:    n.sorted,
		Dest:      n.key,
		Marker:    n.op.marker,
		Sources:   sources,
		Weights:   n.op.weights,
		Aggregate: n.op.aggregate,
		TTL:       n.op.ttl,
	}

	start := time.Now()
	if err := r.call(ctx, func(ctx context.Context) error { return r.store.Materialize(ctx, m) }); err != nil {
		r.storeFailed("materialize", n.key, err)
		return err
	}
	took := time.Since(start)
	r.hooks.Materialized(n.key, n.op.kind.String(), n.op.ttl, took)
	r.log.Debug("materialized", Fields{
		"key":      n.key,
		"op":       n.op.kind.String(),
		"sorted":   n.sorted,
		"children": len(sources),
		"ttl":      n.op.ttl,
		"took":     took,
	})
	return nil
}

// ensureChildren brings every child to done. Siblings are independent, so
// with a pool they run concurrently; the first error wins after all finish.
func (r *Rediset) ensureChildren(ctx context.Context, children []Node, sc *scope) error {
	if r.pool == nil || countOps(children) < 2 {
		for _, c := range children {
			if err := r.ensureNode(ctx, c.base(), sc); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for _, c := range children {
		b := c.base()
		if b.op == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.ensureNode(ctx, b, sc); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// call runs one store round-trip, through the pool when configured so that
// at most Concurrency calls are in flight. Pool tasks never wait on other
// pool tasks.
func (r *Rediset) call(ctx context.Context, fn func(context.Context) error) error {
	if r.pool == nil {
		return fn(ctx)
	}
	return r.pool.SubmitErr(func() error { return fn(ctx) }).Wait()
}

func countOps(children []Node) int {
	n := 0
	for _, c := range children {
		if c.base().op != nil {
			n++
		}
	}
	return n
}
