package rediset

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/rediset/codec"
)

// TypedView reads any node's members as V through a codec.
// Reads materialize exactly like the underlying node's reads.
type TypedView[V any] struct {
	node  Node
	codec codec.Codec[V]
}

// View wraps n for typed reads.
func View[V any](n Node, c codec.Codec[V]) TypedView[V] {
	return TypedView[V]{node: n, codec: c}
}

func (t TypedView[V]) Node() Node { return t.node }

func (t TypedView[V]) Size(ctx context.Context) (int64, error) { return t.node.Size(ctx) }

func (t TypedView[V]) Contains(ctx context.Context, v V) (bool, error) {
	m, err := t.codec.Encode(v)
	if err != nil {
		return false, err
	}
	return t.node.Contains(ctx, string(m))
}

// Members decodes every member; the first undecodable member fails the call.
func (t TypedView[V]) Members(ctx context.Context) ([]V, error) {
	raw, err := t.node.Members(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(raw))
	for _, m := range raw {
		v, err := t.codec.Decode([]byte(m))
		if err != nil {
			return nil, fmt.Errorf("rediset: decode member of %s: %w", t.node.Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// TypedSet is a leaf Set holding encoded values of V.
type TypedSet[V any] struct {
	TypedView[V]
	set *Set
}

// NewTypedSet wraps s; every member written through it is encoded with c.
func NewTypedSet[V any](s *Set, c codec.Codec[V]) *TypedSet[V] {
	return &TypedSet[V]{TypedView: View[V](s, c), set: s}
}

func (t *TypedSet[V]) Set() *Set { return t.set }

func (t *TypedSet[V]) Add(ctx context.Context, vs ...V) error {
	ms, err := t.encodeAll(vs)
	if err != nil {
		return err
	}
	return t.set.Add(ctx, ms...)
}

func (t *TypedSet[V]) Remove(ctx context.Context, vs ...V) error {
	ms, err := t.encodeAll(vs)
	if err != nil {
		return err
	}
	return t.set.Remove(ctx, ms...)
}

func (t *TypedSet[V]) encodeAll(vs []V) ([]string, error) {
	out := make([]string, len(vs))
	for i, v := range vs {
		b, err := t.codec.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}
