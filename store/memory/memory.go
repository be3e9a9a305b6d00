// Package memory is an in-process store.Store with per-key expiry.
//
// It mirrors the Redis semantics rediset relies on: missing keys read as
// empty sets, *STORE commands replace the destination and delete it when
// the result is empty, and type mismatches fail with ErrWrongType.
// Sorted sets are ordered by (score, member) in a B-tree.
package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/unkn0wn-root/rediset/store"
)

var ErrWrongType = errors.New("memory store: operation against a key holding the wrong kind of value")

type kind uint8

const (
	kindSet kind = iota + 1
	kindZSet
	kindString
)

type entry struct {
	kind kind
	set  map[string]struct{}
	zset *zset
	str  string
	exp  time.Time // zero => no expiry
}

type Options struct {
	// Now overrides the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
}

type Memory struct {
	mu  sync.Mutex
	m   map[string]*entry
	now func() time.Time
}

var _ store.Store = (*Memory)(nil)

func New(opts Options) *Memory {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Memory{m: make(map[string]*entry), now: now}
}

// lookup returns the live entry for key, dropping it when expired.
// Caller holds mu.
func (s *Memory) lookup(key string) *entry {
	e, ok := s.m[key]
	if !ok {
		return nil
	}
	if !e.exp.IsZero() && !s.now().Before(e.exp) {
		delete(s.m, key)
		return nil
	}
	return e
}

func (s *Memory) lookupKind(key string, k kind) (*entry, error) {
	e := s.lookup(key)
	if e == nil {
		return nil, nil
	}
	if e.kind != k {
		return nil, ErrWrongType
	}
	return e, nil
}

func (s *Memory) Add(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupKind(key, kindSet)
	if err != nil {
		return err
	}
	if e == nil {
		e = &entry{kind: kindSet, set: make(map[string]struct{}, len(members))}
		s.m[key] = e
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (s *Memory) Remove(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupKind(key, kindSet)
	if err != nil || e == nil {
		return err
	}
	for _, m := range members {
		delete(e.set, m)
	}
	if len(e.set) == 0 {
		delete(s.m, key)
	}
	return nil
}

func (s *Memory) zsetFor(key string, create bool) (*entry, error) {
	e, err := s.lookupKind(key, kindZSet)
	if err != nil {
		return nil, err
	}
	if e == nil && create {
		e = &entry{kind: kindZSet, zset: newZSet()}
		s.m[key] = e
	}
	return e, nil
}

func (s *Memory) ZAdd(_ context.Context, key string, members ...store.Z) error {
	if len(members) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, true)
	if err != nil {
		return err
	}
	for _, z := range members {
		e.zset.set(z.Member, z.Score)
	}
	return nil
}

func (s *Memory) ZRemove(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return err
	}
	for _, m := range members {
		e.zset.remove(m)
	}
	s.dropEmptyZSet(key, e)
	return nil
}

func (s *Memory) ZIncrBy(_ context.Context, key, member string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, true)
	if err != nil {
		return 0, err
	}
	score := e.zset.scores[member] + delta
	e.zset.set(member, score)
	return score, nil
}

func (s *Memory) ZRemRangeByRank(_ context.Context, key string, start, stop int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	victims := e.zset.rangeByRank(start, stop, false)
	for _, z := range victims {
		e.zset.remove(z.Member)
	}
	s.dropEmptyZSet(key, e)
	return int64(len(victims)), nil
}

func (s *Memory) ZRemRangeByScore(_ context.Context, key string, min, max float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	var victims []string
	e.zset.tree.Scan(func(z store.Z) bool {
		if z.Score > max {
			return false
		}
		if z.Score >= min {
			victims = append(victims, z.Member)
		}
		return true
	})
	for _, m := range victims {
		e.zset.remove(m)
	}
	s.dropEmptyZSet(key, e)
	return int64(len(victims)), nil
}

func (s *Memory) dropEmptyZSet(key string, e *entry) {
	if e.zset.len() == 0 {
		delete(s.m, key)
	}
}

func (s *Memory) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key) != nil, nil
}

func (s *Memory) Card(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupKind(key, kindSet)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.set)), nil
}

func (s *Memory) IsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupKind(key, kindSet)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.set[member]
	return ok, nil
}

func (s *Memory) Members(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupKind(key, kindSet)
	if err != nil || e == nil {
		return []string{}, err
	}
	out := make([]string, 0, len(e.set))
	for m := range e.set {
		out = append(out, m)
	}
	return out, nil
}

func (s *Memory) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(e.zset.len()), nil
}

func (s *Memory) ZRange(ctx context.Context, key string, start, stop int64, desc bool) ([]string, error) {
	zs, err := s.ZRangeWithScores(ctx, key, start, stop, desc)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(zs))
	for i, z := range zs {
		out[i] = z.Member
	}
	return out, nil
}

func (s *Memory) ZRangeWithScores(_ context.Context, key string, start, stop int64, desc bool) ([]store.Z, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return []store.Z{}, err
	}
	return e.zset.rangeByRank(start, stop, desc), nil
}

func (s *Memory) ZScore(_ context.Context, key, member string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, false, err
	}
	score, ok := e.zset.scores[member]
	return score, ok, nil
}

func (s *Memory) ZRank(_ context.Context, key, member string, desc bool) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, false, err
	}
	rank, ok := e.zset.rank(member)
	if !ok {
		return 0, false, nil
	}
	if desc {
		rank = int64(e.zset.len()) - 1 - rank
	}
	return rank, true, nil
}

func (s *Memory) Materialize(_ context.Context, m store.Materialization) error {
	if len(m.Sources) == 0 {
		return errors.New("memory store: materialize without sources")
	}
	if m.Sorted && m.Op == store.OpDifference {
		return errors.New("memory store: difference is not supported for sorted sets")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		result *entry
		err    error
	)
	if m.Sorted {
		result, err = s.computeSorted(m)
	} else {
		result, err = s.computeSet(m)
	}
	if err != nil {
		return err
	}

	ttl := m.TTL
	cached := ttl > 0
	if !cached {
		ttl = time.Second
	}
	exp := s.now().Add(ttl)

	if result == nil {
		delete(s.m, m.Dest)
	} else {
		result.exp = exp
		s.m[m.Dest] = result
	}
	if m.Marker != "" {
		if cached {
			s.m[m.Marker] = &entry{kind: kindString, str: "1", exp: exp}
		} else {
			delete(s.m, m.Marker)
		}
	}
	return nil
}

// computeSet returns nil when the result is empty.
func (s *Memory) computeSet(m store.Materialization) (*entry, error) {
	inputs := make([]map[string]struct{}, len(m.Sources))
	for i, k := range m.Sources {
		e, err := s.lookupKind(k, kindSet)
		if err != nil {
			return nil, err
		}
		if e != nil {
			inputs[i] = e.set
		}
	}

	out := make(map[string]struct{})
	switch m.Op {
	case store.OpUnion:
		for _, in := range inputs {
			for k := range in {
				out[k] = struct{}{}
			}
		}
	case store.OpIntersection:
		for k := range inputs[0] {
			if inAll(k, inputs[1:]) {
				out[k] = struct{}{}
			}
		}
	case store.OpDifference:
		for k := range inputs[0] {
			if !inAny(k, inputs[1:]) {
				out[k] = struct{}{}
			}
		}
	default:
		return nil, errors.New("memory store: unknown operation")
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &entry{kind: kindSet, set: out}, nil
}

// computeSorted follows ZUNIONSTORE/ZINTERSTORE: plain sets count as score 1.
func (s *Memory) computeSorted(m store.Materialization) (*entry, error) {
	if m.Weights != nil && len(m.Weights) != len(m.Sources) {
		return nil, errors.New("memory store: weights do not match sources")
	}
	inputs := make([]map[string]float64, len(m.Sources))
	for i, k := range m.Sources {
		e := s.lookup(k)
		w := 1.0
		if m.Weights != nil {
			w = m.Weights[i]
		}
		scores := make(map[string]float64)
		switch {
		case e == nil:
		case e.kind == kindZSet:
			for mem, sc := range e.zset.scores {
				scores[mem] = weighted(sc, w)
			}
		case e.kind == kindSet:
			for mem := range e.set {
				scores[mem] = weighted(1, w)
			}
		default:
			return nil, ErrWrongType
		}
		inputs[i] = scores
	}

	out := make(map[string]float64)
	switch m.Op {
	case store.OpUnion:
		for _, in := range inputs {
			for mem, sc := range in {
				if prev, ok := out[mem]; ok {
					out[mem] = aggregate(m.Aggregate, prev, sc)
				} else {
					out[mem] = sc
				}
			}
		}
	case store.OpIntersection:
		for mem, sc := range inputs[0] {
			acc, ok := sc, true
			for _, in := range inputs[1:] {
				other, present := in[mem]
				if !present {
					ok = false
					break
				}
				acc = aggregate(m.Aggregate, acc, other)
			}
			if ok {
				out[mem] = acc
			}
		}
	default:
		return nil, errors.New("memory store: unknown operation")
	}
	if len(out) == 0 {
		return nil, nil
	}
	zs := newZSet()
	for mem, sc := range out {
		zs.set(mem, sc)
	}
	return &entry{kind: kindZSet, zset: zs}, nil
}

func (s *Memory) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.m, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *Memory) Close(context.Context) error { return nil }

func inAll(k string, sets []map[string]struct{}) bool {
	for _, s := range sets {
		if _, ok := s[k]; !ok {
			return false
		}
	}
	return true
}

func inAny(k string, sets []map[string]struct{}) bool {
	for _, s := range sets {
		if _, ok := s[k]; ok {
			return true
		}
	}
	return false
}

func weighted(score, w float64) float64 {
	v := score * w
	if math.IsNaN(v) {
		return 0 // inf * 0
	}
	return v
}

func aggregate(a store.Aggregate, x, y float64) float64 {
	switch a {
	case store.AggregateMin:
		return math.Min(x, y)
	case store.AggregateMax:
		return math.Max(x, y)
	default:
		v := x + y
		if math.IsNaN(v) {
			return 0 // +inf + -inf
		}
		return v
	}
}
