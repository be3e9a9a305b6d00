package wire

import (
	"bytes"
	"encoding/binary"
	"math"
)

const version byte = 1

var magic4 = [...]byte{'R', 'S', 'E', 'T'}

// Descriptor is the structural identity of an operation node.
type Descriptor struct {
	Op        byte
	Sorted    bool
	Aggregate byte
	Weights   []float64
	Children  []string // child storage keys, in construction order
}

// EncodeDescriptor returns the canonical byte form hashed into operation keys.
// Every variable-length field is length-prefixed, so distinct descriptors never
// share an encoding.
//
//	magic(4) | ver(1) | op(1) | sorted(1) | agg(1)
//	nw(u32 be) | weight(f64 bits be) * nw
//	nc(u32 be) | klen(u32 be) | key(klen) * nc
//
// Plain operations always encode agg=0 and nw=0.
func EncodeDescriptor(d Descriptor) []byte {
	total := 4 + 1 + 1 + 1 + 1 + 4 + 8*len(d.Weights) + 4
	for _, k := range d.Children {
		total += 4 + len(k)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(d.Op)

	var sorted, agg byte
	weights := d.Weights
	if d.Sorted {
		sorted = 1
		agg = d.Aggregate
	} else {
		weights = nil
	}
	buf.WriteByte(sorted)
	buf.WriteByte(agg)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(weights)))
	buf.Write(u4[:])
	for _, w := range weights {
		if w == 0 {
			w = 0 // fold -0 into +0
		}
		binary.BigEndian.PutUint64(u8[:], math.Float64bits(w))
		buf.Write(u8[:])
	}

	binary.BigEndian.PutUint32(u4[:], uint32(len(d.Children)))
	buf.Write(u4[:])
	for _, k := range d.Children {
		binary.BigEndian.PutUint32(u4[:], uint32(len(k)))
		buf.Write(u4[:])
		buf.WriteString(k)
	}

	return buf.Bytes()
}
