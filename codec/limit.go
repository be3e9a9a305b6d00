package codec

import "fmt"

// LimitCodec wraps another codec to enforce a maximum member size in both
// directions. If Max <= 0, size limiting is disabled.
//
// Typical use: keep oversized values out of a shared set, and refuse to
// decode members some other writer put there.
type LimitCodec[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec[V]
	// Max is the maximum permitted member length in bytes.
	Max int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.Max > 0 && len(b) > c.Max {
		return nil, fmt.Errorf("member too large: %d > %d", len(b), c.Max)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("member too large: %d > %d", len(b), c.Max)
	}
	return c.Inner.Decode(b)
}
