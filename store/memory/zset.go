package memory

import (
	"github.com/tidwall/btree"

	"github.com/unkn0wn-root/rediset/store"
)

type zset struct {
	scores map[string]float64
	tree   *btree.BTreeG[store.Z]
}

func zless(a, b store.Z) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Member < b.Member
}

func newZSet() *zset {
	return &zset{
		scores: make(map[string]float64),
		tree:   btree.NewBTreeG[store.Z](zless),
	}
}

func (z *zset) len() int { return len(z.scores) }

func (z *zset) set(member string, score float64) {
	if prev, ok := z.scores[member]; ok {
		z.tree.Delete(store.Z{Member: member, Score: prev})
	}
	z.scores[member] = score
	z.tree.Set(store.Z{Member: member, Score: score})
}

func (z *zset) remove(member string) {
	prev, ok := z.scores[member]
	if !ok {
		return
	}
	delete(z.scores, member)
	z.tree.Delete(store.Z{Member: member, Score: prev})
}

func (z *zset) rank(member string) (int64, bool) {
	score, ok := z.scores[member]
	if !ok {
		return 0, false
	}
	target := store.Z{Member: member, Score: score}
	var r int64
	z.tree.Scan(func(item store.Z) bool {
		if !zless(item, target) {
			return false
		}
		r++
		return true
	})
	return r, true
}

// rangeByRank applies Redis ZRANGE index rules: inclusive bounds, negative
// indexes count from the end, out-of-range bounds are clamped.
func (z *zset) rangeByRank(start, stop int64, desc bool) []store.Z {
	n := int64(z.len())
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []store.Z{}
	}

	out := make([]store.Z, 0, stop-start+1)
	var i int64
	iter := func(item store.Z) bool {
		if i > stop {
			return false
		}
		if i >= start {
			out = append(out, item)
		}
		i++
		return true
	}
	if desc {
		z.tree.Reverse(iter)
	} else {
		z.tree.Scan(iter)
	}
	return out
}
