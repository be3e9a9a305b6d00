package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestDescriptorIsStable(t *testing.T) {
	d := Descriptor{Op: 2, Sorted: true, Aggregate: 1, Weights: []float64{1, 2.5}, Children: []string{"a", "b"}}
	a := EncodeDescriptor(d)
	b := EncodeDescriptor(Descriptor{Op: 2, Sorted: true, Aggregate: 1, Weights: []float64{1, 2.5}, Children: []string{"a", "b"}})
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding not deterministic:\n%x\n%x", a, b)
	}
	if !bytes.Equal(a[:4], magic4[:]) || a[4] != version {
		t.Fatalf("bad header: %x", a[:5])
	}
}

func TestDescriptorChildBoundariesAreUnambiguous(t *testing.T) {
	// "ab","c" and "a","bc" concatenate to the same bytes; length prefixes must
	// keep them apart.
	x := EncodeDescriptor(Descriptor{Op: 1, Children: []string{"ab", "c"}})
	y := EncodeDescriptor(Descriptor{Op: 1, Children: []string{"a", "bc"}})
	if bytes.Equal(x, y) {
		t.Fatalf("child boundaries collapsed")
	}

	z := EncodeDescriptor(Descriptor{Op: 1, Children: []string{"a,b"}})
	w := EncodeDescriptor(Descriptor{Op: 1, Children: []string{"a", "b"}})
	if bytes.Equal(z, w) {
		t.Fatalf("separator inside a key aliased two children")
	}
}

func TestDescriptorOrderSensitive(t *testing.T) {
	x := EncodeDescriptor(Descriptor{Op: 1, Children: []string{"a", "b"}})
	y := EncodeDescriptor(Descriptor{Op: 1, Children: []string{"b", "a"}})
	if bytes.Equal(x, y) {
		t.Fatalf("child order ignored")
	}
}

func TestDescriptorPlainIgnoresSortedParams(t *testing.T) {
	x := EncodeDescriptor(Descriptor{Op: 1, Aggregate: 2, Weights: []float64{3}, Children: []string{"a"}})
	y := EncodeDescriptor(Descriptor{Op: 1, Children: []string{"a"}})
	if !bytes.Equal(x, y) {
		t.Fatalf("plain descriptor carried sorted params")
	}
}

func TestDescriptorLayout(t *testing.T) {
	enc := EncodeDescriptor(Descriptor{Op: 3, Sorted: true, Aggregate: 2, Weights: []float64{math.Copysign(0, -1)}, Children: []string{"k"}})

	off := 5
	if enc[off] != 3 || enc[off+1] != 1 || enc[off+2] != 2 {
		t.Fatalf("op/sorted/agg = %d/%d/%d", enc[off], enc[off+1], enc[off+2])
	}
	off += 3
	if n := binary.BigEndian.Uint32(enc[off:]); n != 1 {
		t.Fatalf("weights count = %d", n)
	}
	off += 4
	if bits := binary.BigEndian.Uint64(enc[off:]); bits != math.Float64bits(0) {
		t.Fatalf("negative zero weight not folded: %x", bits)
	}
	off += 8
	if n := binary.BigEndian.Uint32(enc[off:]); n != 1 {
		t.Fatalf("children count = %d", n)
	}
	off += 4
	if n := binary.BigEndian.Uint32(enc[off:]); n != 1 {
		t.Fatalf("key len = %d", n)
	}
	off += 4
	if string(enc[off:]) != "k" {
		t.Fatalf("key = %q", enc[off:])
	}
}
