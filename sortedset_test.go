package rediset

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
)

func seedScores(t *testing.T, rs *Rediset) (*SortedSet, *SortedSet) {
	t.Helper()
	ctx := context.Background()
	s1, s2 := rs.SortedSet("s1"), rs.SortedSet("s2")
	if err := s1.Add(ctx, Z{Member: "a", Score: 1}, Z{Member: "b", Score: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s2.Add(ctx, Z{Member: "b", Score: 3}, Z{Member: "c", Score: 4}); err != nil {
		t.Fatal(err)
	}
	return s1, s2
}

func TestSortedAggregation(t *testing.T) {
	rs := newEnv(t, nil).rs
	s1, s2 := seedScores(t, rs)

	cases := []struct {
		name string
		opts []any
		want float64
	}{
		{"default sum", nil, 5},
		{"max", []any{WithAggregate(Max)}, 3},
		{"min", []any{WithAggregate(Min)}, 2},
		{"explicit sum", []any{WithAggregate(Sum)}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := must(t)(rs.Intersection(append([]any{s1, s2}, tc.opts...)...))
			so, ok := n.(SortedNode)
			if !ok {
				t.Fatalf("built %T, want a SortedNode", n)
			}
			zs, err := so.RangeWithScores(context.Background(), 0, -1)
			if err != nil {
				t.Fatalf("RangeWithScores: %v", err)
			}
			want := []Z{{Member: "b", Score: tc.want}}
			if !slices.Equal(zs, want) {
				t.Fatalf("got %v, want %v", zs, want)
			}
		})
	}
}

func TestSortedUnion_WeightsAndOrder(t *testing.T) {
	rs := newEnv(t, nil).rs
	s1, s2 := seedScores(t, rs)
	ctx := context.Background()

	u := must(t)(rs.Union(s1, s2, WithWeights(10, 1))).(*SortedOperation)
	zs, err := u.RangeWithScores(ctx, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	want := []Z{{"c", 4}, {"a", 10}, {"b", 23}}
	if !slices.Equal(zs, want) {
		t.Fatalf("weighted union = %v, want %v", zs, want)
	}

	if ms, _ := u.Members(ctx); !slices.Equal(ms, []string{"c", "a", "b"}) {
		t.Fatalf("Members = %v", ms)
	}
	if ms, _ := u.Range(ctx, 0, 1, Descending()); !slices.Equal(ms, []string{"b", "a"}) {
		t.Fatalf("top two = %v", ms)
	}
	if m, ok, _ := u.At(ctx, -1); !ok || m != "b" {
		t.Fatalf("At(-1) = %q %v", m, ok)
	}
	if _, ok, _ := u.At(ctx, 7); ok {
		t.Fatalf("At out of range reported ok")
	}
	if s, ok, _ := u.Score(ctx, "a"); !ok || s != 10 {
		t.Fatalf("Score(a) = %v %v", s, ok)
	}
	if _, ok, _ := u.Score(ctx, "zz"); ok {
		t.Fatalf("Score of absent member reported ok")
	}
	if r, ok, _ := u.Rank(ctx, "c"); !ok || r != 0 {
		t.Fatalf("Rank(c) = %d %v", r, ok)
	}
	if r, ok, _ := u.Rank(ctx, "c", Descending()); !ok || r != 2 {
		t.Fatalf("desc Rank(c) = %d %v", r, ok)
	}
	if ok, _ := u.Contains(ctx, "b"); !ok {
		t.Fatalf("Contains(b) = false")
	}
	if n, _ := u.Size(ctx); n != 3 {
		t.Fatalf("Size = %d", n)
	}
}

func TestMixedOperands_PlainSetsScoreOne(t *testing.T) {
	rs := newEnv(t, nil).rs
	s1, _ := seedScores(t, rs)
	ctx := context.Background()
	_ = rs.Set("plain").Add(ctx, "a", "x")

	u := must(t)(rs.Union(s1, "plain"))
	so, ok := u.(*SortedOperation)
	if !ok {
		t.Fatalf("mixed union built %T", u)
	}
	zs, err := so.RangeWithScores(ctx, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	want := []Z{{"x", 1}, {"a", 2}, {"b", 2}}
	if !slices.Equal(zs, want) {
		t.Fatalf("got %v, want %v", zs, want)
	}
}

func TestSortedSet_LeafMutations(t *testing.T) {
	rs := newEnv(t, nil).rs
	ctx := context.Background()
	s := rs.SortedSet("board")
	_ = s.Add(ctx, Z{"ann", 5}, Z{"bob", 3}, Z{"cat", 8}, Z{"dan", 1})

	if v, err := s.Increment(ctx, "bob", 4); err != nil || v != 7 {
		t.Fatalf("Increment = %v, %v", v, err)
	}
	if v, err := s.Decrement(ctx, "cat", 0.5); err != nil || v != 7.5 {
		t.Fatalf("Decrement = %v, %v", v, err)
	}
	if v, _ := s.Increment(ctx, "eve", 2); v != 2 {
		t.Fatalf("Increment new member = %v", v)
	}

	// dan:1 eve:2 ann:5 bob:7 cat:7.5
	n, err := s.RemoveRangeByRank(ctx, 0, 1)
	if err != nil || n != 2 {
		t.Fatalf("RemoveRangeByRank = %d, %v", n, err)
	}
	n, err = s.RemoveRangeByScore(ctx, 7, math.Inf(1))
	if err != nil || n != 2 {
		t.Fatalf("RemoveRangeByScore = %d, %v", n, err)
	}
	if ms, _ := s.Members(ctx); !slices.Equal(ms, []string{"ann"}) {
		t.Fatalf("remaining = %v", ms)
	}

	if _, err := s.RemoveRangeByScore(ctx, math.NaN(), 1); !errors.Is(err, ErrUsage) {
		t.Fatalf("NaN bound err = %v", err)
	}
	if err := s.Remove(ctx, "ann"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Size(ctx); n != 0 {
		t.Fatalf("Size = %d", n)
	}
}

func TestSortedOperation_DecodedScores(t *testing.T) {
	rs := newEnv(t, nil).rs
	s1, s2 := seedScores(t, rs)

	u := must(t)(rs.Union(s1, s2)).(SortedNode)
	zs, err := u.RangeWithScores(context.Background(), 0, -1, Descending())
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeScores(zs, func(f float64) (int64, error) { return int64(f), nil })
	if err != nil {
		t.Fatal(err)
	}
	want := []Scored[int64]{{"b", 5}, {"c", 4}, {"a", 1}}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
