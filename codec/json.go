package codec

import "encoding/json"

// JSON encodes with encoding/json. Struct fields keep declaration order and
// map keys are sorted, so encoding is deterministic.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
