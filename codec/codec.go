// Package codec converts typed values to and from set members.
//
// Store members are byte strings; a Codec lets TypedSet and View work with
// richer values. Encodings used for members MUST be deterministic: the same
// value must always produce the same bytes, or membership tests and set
// algebra silently stop matching.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
