package rediset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/unkn0wn-root/rediset/internal/keys"
	"github.com/unkn0wn-root/rediset/store"
)

// Aggregate is re-exported so callers rarely need the store package.
type Aggregate = store.Aggregate

const (
	Sum = store.AggregateSum
	Min = store.AggregateMin
	Max = store.AggregateMax
)

// Z is a sorted-set member with its score.
type Z = store.Z

// Options configure a Rediset factory.
// Only Store is required; others have sensible defaults.
type Options struct {
	// Required
	Store store.Store

	KeyPrefix string // prepended to every key as "<prefix>:"; empty => none
	// DefaultTTL applies to operation nodes built without CacheFor.
	// 0 means unset and falls back to 60s; pass CacheFor(0) on a node to
	// keep its result uncached.
	DefaultTTL  time.Duration
	Logger      Logger // if nil, NopLogger is used
	Hooks       Hooks  // if nil, NopHooks is used
	Concurrency int    // >0 => siblings evaluated concurrently, at most N store calls in flight
	CloseStore  bool   // Close also closes Store
}

// Rediset builds nodes that share one configuration: store, key prefix and
// default TTL. Safe for concurrent use; independent factories with different
// prefixes may coexist in one process.
type Rediset struct {
	store      store.Store
	prefix     string
	defaultTTL time.Duration
	log        Logger
	hooks      Hooks
	pool       pond.Pool // nil => sequential evaluation
	closeStore bool
	closeOnce  sync.Once
}

func New(opts Options) (*Rediset, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("rediset: store is required")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("rediset: negative default TTL %s", opts.DefaultTTL)
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("rediset: negative concurrency %d", opts.Concurrency)
	}

	r := &Rediset{
		store:      opts.Store,
		prefix:     opts.KeyPrefix,
		closeStore: opts.CloseStore,
	}
	r.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	r.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.Concurrency > 0 {
		r.pool = pond.NewPool(opts.Concurrency)
	}
	return r, nil
}

// KeyPrefix returns the namespace prepended to every key.
func (r *Rediset) KeyPrefix() string { return r.prefix }

// DefaultTTL returns the TTL given to operation nodes built without CacheFor.
func (r *Rediset) DefaultTTL() time.Duration { return r.defaultTTL }

// Close stops the evaluation pool and, with CloseStore, the store.
// Safe to call multiple times.
func (r *Rediset) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		if r.pool != nil {
			r.pool.StopAndWait()
		}
		if r.closeStore {
			err = r.store.Close(ctx)
		}
	})
	return err
}

// Set returns the leaf node for a plain set named name. No store access.
func (r *Rediset) Set(name string) *Set {
	s := &Set{}
	s.node = node{rs: r, key: keys.Leaf(r.prefix, name), self: s}
	return s
}

// SortedSet returns the leaf node for a sorted set named name. No store access.
func (r *Rediset) SortedSet(name string) *SortedSet {
	s := &SortedSet{}
	s.node = node{rs: r, key: keys.Leaf(r.prefix, name), sorted: true, self: s}
	return s
}

// Union builds the union of its operands. Operands are Nodes, plain strings
// (wrapped with r.Set) and OpOptions, in any mix. A single operand is
// returned as-is. With any sorted operand the result is a *SortedOperation;
// otherwise an *Operation. No store access.
func (r *Rediset) Union(operands ...any) (Node, error) {
	return r.operation(store.OpUnion, operands)
}

// Intersection builds the intersection of its operands. See Union.
func (r *Rediset) Intersection(operands ...any) (Node, error) {
	return r.operation(store.OpIntersection, operands)
}

// Difference builds first-minus-rest over its operands. Sorted operands are
// rejected with a *UsageError. See Union.
func (r *Rediset) Difference(operands ...any) (Node, error) {
	return r.operation(store.OpDifference, operands)
}

// Invalidate drops a node's cached result so the next read recomputes it.
// Leaves are the source of truth and are left untouched.
func (r *Rediset) Invalidate(ctx context.Context, n Node) error {
	if n == nil {
		return r.reject(usageErr("invalidate", "nil node"))
	}
	b := n.base()
	if b.rs != r {
		return r.reject(usageErr("invalidate", "node belongs to another Rediset"))
	}
	if b.op == nil {
		return nil
	}
	if err := r.store.Del(ctx, b.op.marker, b.key); err != nil {
		r.storeFailed("invalidate", b.key, err)
		return err
	}
	r.log.Debug("invalidated operation result", Fields{"key": b.key})
	return nil
}

func (r *Rediset) reject(err *UsageError) *UsageError {
	r.hooks.UsageRejected(err.Op, err.Reason)
	return err
}

func (r *Rediset) storeFailed(stage, key string, err error) {
	r.hooks.StoreError(stage, key, err)
	r.log.Warn("store call failed", Fields{"stage": stage, "key": key, "err": err})
}
