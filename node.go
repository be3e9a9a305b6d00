package rediset

import (
	"context"
	"time"

	"github.com/unkn0wn-root/rediset/store"
)

// Node is a vertex of a set-expression tree.
//
// Every read first guarantees the node's result is present in the store,
// materializing missing operation results bottom-up. A read can therefore
// issue store writes.
type Node interface {
	// Key is the node's storage key. Fixed at construction.
	Key() string
	// Size returns the cardinality.
	Size(ctx context.Context) (int64, error)
	Contains(ctx context.Context, member string) (bool, error)
	// Members returns every member; ascending by score for sorted nodes.
	Members(ctx context.Context) ([]string, error)

	base() *node
}

// SortedNode is a Node over a sorted set.
type SortedNode interface {
	Node
	// Range returns members ranked start..stop inclusive; negative ranks
	// count from the end.
	Range(ctx context.Context, start, stop int64, opts ...RangeOption) ([]string, error)
	RangeWithScores(ctx context.Context, start, stop int64, opts ...RangeOption) ([]Z, error)
	// At returns the member at rank index; ok=false when out of range.
	At(ctx context.Context, index int64, opts ...RangeOption) (member string, ok bool, err error)
	// Score returns ok=false when member is absent.
	Score(ctx context.Context, member string) (score float64, ok bool, err error)
	// Rank returns ok=false when member is absent.
	Rank(ctx context.Context, member string, opts ...RangeOption) (rank int64, ok bool, err error)
}

type rangeConfig struct {
	desc bool
}

type RangeOption func(*rangeConfig)

// Descending orders ranges and ranks from the highest score.
func Descending() RangeOption {
	return func(c *rangeConfig) { c.desc = true }
}

func rangeOpts(opts []RangeOption) rangeConfig {
	var c rangeConfig
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Scored pairs a member with a decoded score.
type Scored[T any] struct {
	Member string
	Score  T
}

// DecodeScores maps the float scores of a with-scores range through decode.
func DecodeScores[T any](zs []Z, decode func(float64) (T, error)) ([]Scored[T], error) {
	out := make([]Scored[T], len(zs))
	for i, z := range zs {
		v, err := decode(z.Score)
		if err != nil {
			return nil, err
		}
		out[i] = Scored[T]{Member: z.Member, Score: v}
	}
	return out, nil
}

// Add adds members to a leaf set. Any other node is rejected with a
// *UsageError: operation results are derived, and sorted sets need scores.
func Add(ctx context.Context, n Node, members ...string) error {
	switch v := n.(type) {
	case nil:
		return usageErr("add", "nil node")
	case *Set:
		return v.Add(ctx, members...)
	case *SortedSet:
		return v.rs.reject(usageErr("add", "sorted set members need scores; use (*SortedSet).Add"))
	default:
		return n.base().rs.reject(usageErr("add", "cannot mutate a derived node "+n.Key()))
	}
}

// Remove removes members from a leaf set or sorted set. Operation nodes are
// rejected with a *UsageError.
func Remove(ctx context.Context, n Node, members ...string) error {
	switch v := n.(type) {
	case nil:
		return usageErr("remove", "nil node")
	case *Set:
		return v.Remove(ctx, members...)
	case *SortedSet:
		return v.Remove(ctx, members...)
	default:
		return n.base().rs.reject(usageErr("remove", "cannot mutate a derived node "+n.Key()))
	}
}

// opSpec holds what only operation nodes have.
type opSpec struct {
	kind      store.Op
	children  []Node
	marker    string
	ttl       time.Duration
	aggregate store.Aggregate
	weights   []float64
}

// node carries the uniform read contract shared by every variant.
type node struct {
	rs     *Rediset
	key    string
	sorted bool
	op     *opSpec // nil for leaves
	self   Node
}

func (n *node) base() *node { return n }

func (n *node) Key() string { return n.key }

func (n *node) String() string { return n.key }

func (n *node) Size(ctx context.Context) (int64, error) {
	if err := n.rs.ensure(ctx, n); err != nil {
		return 0, err
	}
	var (
		c   int64
		err error
	)
	if n.sorted {
		c, err = n.rs.store.ZCard(ctx, n.key)
	} else {
		c, err = n.rs.store.Card(ctx, n.key)
	}
	return c, n.readErr(err)
}

func (n *node) Contains(ctx context.Context, member string) (bool, error) {
	if err := n.rs.ensure(ctx, n); err != nil {
		return false, err
	}
	if n.sorted {
		_, ok, err := n.rs.store.ZScore(ctx, n.key, member)
		return ok, n.readErr(err)
	}
	ok, err := n.rs.store.IsMember(ctx, n.key, member)
	return ok, n.readErr(err)
}

func (n *node) Members(ctx context.Context) ([]string, error) {
	if err := n.rs.ensure(ctx, n); err != nil {
		return nil, err
	}
	var (
		ms  []string
		err error
	)
	if n.sorted {
		ms, err = n.rs.store.ZRange(ctx, n.key, 0, -1, false)
	} else {
		ms, err = n.rs.store.Members(ctx, n.key)
	}
	return ms, n.readErr(err)
}

// Union builds the union of this node and others via the owning factory.
func (n *node) Union(others ...any) (Node, error) {
	return n.rs.Union(append([]any{n.self}, others...)...)
}

// Intersection builds the intersection of this node and others.
func (n *node) Intersection(others ...any) (Node, error) {
	return n.rs.Intersection(append([]any{n.self}, others...)...)
}

// Difference builds this node minus others.
func (n *node) Difference(others ...any) (Node, error) {
	return n.rs.Difference(append([]any{n.self}, others...)...)
}

func (n *node) readErr(err error) error {
	if err != nil {
		n.rs.storeFailed("read", n.key, err)
	}
	return err
}

func (n *node) writeErr(err error) error {
	if err != nil {
		n.rs.storeFailed("write", n.key, err)
	}
	return err
}

// sortedNode adds the sorted read contract.
type sortedNode struct {
	node
}

func (n *sortedNode) Range(ctx context.Context, start, stop int64, opts ...RangeOption) ([]string, error) {
	if err := n.rs.ensure(ctx, &n.node); err != nil {
		return nil, err
	}
	ms, err := n.rs.store.ZRange(ctx, n.key, start, stop, rangeOpts(opts).desc)
	return ms, n.readErr(err)
}

func (n *sortedNode) RangeWithScores(ctx context.Context, start, stop int64, opts ...RangeOption) ([]Z, error) {
	if err := n.rs.ensure(ctx, &n.node); err != nil {
		return nil, err
	}
	zs, err := n.rs.store.ZRangeWithScores(ctx, n.key, start, stop, rangeOpts(opts).desc)
	return zs, n.readErr(err)
}

func (n *sortedNode) At(ctx context.Context, index int64, opts ...RangeOption) (string, bool, error) {
	ms, err := n.Range(ctx, index, index, opts...)
	if err != nil || len(ms) == 0 {
		return "", false, err
	}
	return ms[0], true, nil
}

func (n *sortedNode) Score(ctx context.Context, member string) (float64, bool, error) {
	if err := n.rs.ensure(ctx, &n.node); err != nil {
		return 0, false, err
	}
	s, ok, err := n.rs.store.ZScore(ctx, n.key, member)
	return s, ok, n.readErr(err)
}

func (n *sortedNode) Rank(ctx context.Context, member string, opts ...RangeOption) (int64, bool, error) {
	if err := n.rs.ensure(ctx, &n.node); err != nil {
		return 0, false, err
	}
	r, ok, err := n.rs.store.ZRank(ctx, n.key, member, rangeOpts(opts).desc)
	return r, ok, n.readErr(err)
}
