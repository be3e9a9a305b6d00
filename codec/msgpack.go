package codec

import (
	"bytes"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Msgpack is a Codec that serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Every map in the output, at any depth and with any key type, has its
// entries ordered by encoded key bytes, so equal values encode to equal
// members. Use `msgpack:"fieldName"` tags if you need explicit control.
type Msgpack[V any] struct{}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	return canonicalMsgpack(b)
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

// SetSortMapKeys only covers a few concrete map types, so the encoding is
// rewritten instead: maps are re-emitted sorted, everything else is copied.
func canonicalMsgpack(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(b))
	if err := copyCanonical(msgpack.NewDecoder(bytes.NewReader(b)), msgpack.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func copyCanonical(dec *msgpack.Decoder, enc *msgpack.Encoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}
		type entry struct{ k, v []byte }
		entries := make([]entry, n)
		for i := range entries {
			if entries[i].k, err = canonicalValue(dec); err != nil {
				return err
			}
			if entries[i].v, err = canonicalValue(dec); err != nil {
				return err
			}
		}
		slices.SortFunc(entries, func(a, b entry) int { return bytes.Compare(a.k, b.k) })
		if err := enc.EncodeMapLen(n); err != nil {
			return err
		}
		for _, e := range entries {
			if err := enc.Encode(msgpack.RawMessage(e.k)); err != nil {
				return err
			}
			if err := enc.Encode(msgpack.RawMessage(e.v)); err != nil {
				return err
			}
		}
		return nil

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := copyCanonical(dec, enc); err != nil {
				return err
			}
		}
		return nil
	}

	raw, err := dec.DecodeRaw()
	if err != nil {
		return err
	}
	return enc.Encode(raw)
}

func canonicalValue(dec *msgpack.Decoder) ([]byte, error) {
	var buf bytes.Buffer
	if err := copyCanonical(dec, msgpack.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
