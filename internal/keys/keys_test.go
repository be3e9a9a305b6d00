package keys

import (
	"fmt"
	"strings"
	"testing"

	"github.com/unkn0wn-root/rediset/internal/wire"
)

func TestLeafPrefixing(t *testing.T) {
	if got := Leaf("", "users"); got != "users" {
		t.Fatalf("Leaf without prefix = %q", got)
	}
	if got := Leaf("app", "users"); got != "app:users" {
		t.Fatalf("Leaf with prefix = %q", got)
	}
}

func TestOperationAndMarkerShareDigest(t *testing.T) {
	d := Digest(wire.Descriptor{Op: 1, Children: []string{"a", "b"}})
	if len(d) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(d))
	}
	op := Operation("app", d)
	mk := Marker("app", d)
	if op != "app:rediset:"+d {
		t.Fatalf("Operation = %q", op)
	}
	if mk != "app:rediset:cached:"+d {
		t.Fatalf("Marker = %q", mk)
	}
	if Operation("", d) != "rediset:"+d {
		t.Fatalf("unprefixed Operation = %q", Operation("", d))
	}
}

func TestDigestDistinctOverCorpus(t *testing.T) {
	seen := make(map[string]wire.Descriptor)
	add := func(d wire.Descriptor) {
		k := Digest(d)
		if prev, ok := seen[k]; ok {
			t.Fatalf("collision: %+v and %+v -> %s", prev, d, k)
		}
		seen[k] = d
	}

	names := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		names = append(names, fmt.Sprintf("s%d", i))
	}
	for op := byte(1); op <= 3; op++ {
		for i := range names {
			for j := range names {
				if i == j {
					continue
				}
				add(wire.Descriptor{Op: op, Children: []string{names[i], names[j]}})
			}
		}
	}
	for agg := byte(0); agg <= 2; agg++ {
		for i := 0; i+2 < len(names); i++ {
			add(wire.Descriptor{Op: 1, Sorted: true, Aggregate: agg, Children: names[i : i+3]})
			add(wire.Descriptor{Op: 2, Sorted: true, Aggregate: agg, Children: names[i : i+3]})
			add(wire.Descriptor{Op: 2, Sorted: true, Aggregate: agg, Weights: []float64{1, 2, 3}, Children: names[i : i+3]})
		}
	}
	if len(seen) < 2500 {
		t.Fatalf("corpus too small: %d", len(seen))
	}
	for k := range seen {
		if strings.ContainsAny(k, ":") {
			t.Fatalf("digest contains separator: %q", k)
		}
	}
}
