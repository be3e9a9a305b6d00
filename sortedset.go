package rediset

import (
	"context"
	"math"
)

// SortedSet is a leaf node over a sorted set. Like Set it is mutated
// directly and never materialized.
type SortedSet struct {
	sortedNode
}

var _ SortedNode = (*SortedSet)(nil)

func (s *SortedSet) Add(ctx context.Context, members ...Z) error {
	return s.writeErr(s.rs.store.ZAdd(ctx, s.key, members...))
}

func (s *SortedSet) Remove(ctx context.Context, members ...string) error {
	return s.writeErr(s.rs.store.ZRemove(ctx, s.key, members...))
}

// Increment adds amount to member's score (creating it at amount) and
// returns the new score.
func (s *SortedSet) Increment(ctx context.Context, member string, amount float64) (float64, error) {
	v, err := s.rs.store.ZIncrBy(ctx, s.key, member, amount)
	return v, s.writeErr(err)
}

func (s *SortedSet) Decrement(ctx context.Context, member string, amount float64) (float64, error) {
	return s.Increment(ctx, member, -amount)
}

// RemoveRangeByRank removes members ranked start..stop inclusive and returns
// how many were removed.
func (s *SortedSet) RemoveRangeByRank(ctx context.Context, start, stop int64) (int64, error) {
	n, err := s.rs.store.ZRemRangeByRank(ctx, s.key, start, stop)
	return n, s.writeErr(err)
}

// RemoveRangeByScore removes members with min <= score <= max. Use
// math.Inf for open bounds.
func (s *SortedSet) RemoveRangeByScore(ctx context.Context, min, max float64) (int64, error) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return 0, s.rs.reject(usageErr("remove_range_by_score", "NaN bound"))
	}
	n, err := s.rs.store.ZRemRangeByScore(ctx, s.key, min, max)
	return n, s.writeErr(err)
}
