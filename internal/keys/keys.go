package keys

import (
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/unkn0wn-root/rediset/internal/wire"
)

const (
	generatedPrefix = "rediset"
	cachedPrefix    = "cached"
)

// Leaf returns the storage key of a user-named set: "<prefix>:<name>", or the
// bare name when prefix is empty.
func Leaf(prefix, name string) string {
	return join(prefix, name)
}

// Digest returns the hex BLAKE3-256 of the canonical descriptor encoding.
func Digest(d wire.Descriptor) string {
	sum := blake3.Sum256(wire.EncodeDescriptor(d))
	return hex.EncodeToString(sum[:])
}

// Operation returns "<prefix>:rediset:<digest>".
func Operation(prefix, digest string) string {
	return join(prefix, generatedPrefix+":"+digest)
}

// Marker returns "<prefix>:rediset:cached:<digest>"; its presence means the
// operation result under the same digest is cached, even when empty.
func Marker(prefix, digest string) string {
	return join(prefix, generatedPrefix+":"+cachedPrefix+":"+digest)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
