package rediset

import "context"

// Set is a leaf node over a plain set. It is the source of truth: mutations
// go straight to the store and reads never materialize anything.
type Set struct {
	node
}

var _ Node = (*Set)(nil)

func (s *Set) Add(ctx context.Context, members ...string) error {
	return s.writeErr(s.rs.store.Add(ctx, s.key, members...))
}

func (s *Set) Remove(ctx context.Context, members ...string) error {
	return s.writeErr(s.rs.store.Remove(ctx, s.key, members...))
}
