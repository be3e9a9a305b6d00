// Package store defines the backing-store abstraction used by rediset.
//
// A Store is a key-value server with native set and sorted-set types and
// server-side set operations (Redis is the reference implementation).
// rediset decides when to call Materialize and which keys to use; the Store
// executes each call as one atomic command on its side.
//
// Important: the keyspace "<prefix>:rediset:" is owned by rediset. External
// code MUST NOT write values under it; foreign writes may be served as
// cached operation results.
package store

import (
	"context"
	"time"
)

// Op is the server-side set operation to materialize.
type Op uint8

const (
	OpUnion Op = iota + 1
	OpIntersection
	OpDifference
)

func (o Op) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpIntersection:
		return "intersection"
	case OpDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// Aggregate controls how scores of a member present in several sorted inputs
// are combined.
type Aggregate uint8

const (
	AggregateSum Aggregate = iota // default
	AggregateMin
	AggregateMax
)

func (a Aggregate) String() string {
	switch a {
	case AggregateMin:
		return "MIN"
	case AggregateMax:
		return "MAX"
	default:
		return "SUM"
	}
}

// Z is a sorted-set member with its score.
type Z struct {
	Member string
	Score  float64
}

// Materialization describes one operation-and-store call.
//
// The store computes Op over the current contents of Sources, replaces Dest
// with the result and applies TTL to it. When Marker is non-empty it is set
// with the same TTL so that an empty result (which the store represents as a
// missing key) still reads as cached. All of it must happen atomically.
type Materialization struct {
	Op        Op
	Sorted    bool
	Dest      string
	Marker    string
	Sources   []string
	Weights   []float64 // sorted only; nil => all 1
	Aggregate Aggregate // sorted only
	TTL       time.Duration
}

// Store is the capability surface rediset consumes.
// Must be safe for concurrent use. Missing keys behave like empty sets.
// Transport/server failures are returned as-is; rediset never retries.
type Store interface {
	// Leaf set mutation.
	Add(ctx context.Context, key string, members ...string) error
	Remove(ctx context.Context, key string, members ...string) error

	// Leaf sorted-set mutation.
	ZAdd(ctx context.Context, key string, members ...Z) error
	ZRemove(ctx context.Context, key string, members ...string) error
	ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error)
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Set reads.
	Card(ctx context.Context, key string) (int64, error)
	IsMember(ctx context.Context, key, member string) (bool, error)
	Members(ctx context.Context, key string) ([]string, error)

	// Sorted-set reads. start/stop are inclusive ranks; negative values
	// count from the end (-1 is the last member).
	ZCard(ctx context.Context, key string) (int64, error)
	ZRange(ctx context.Context, key string, start, stop int64, desc bool) ([]string, error)
	ZRangeWithScores(ctx context.Context, key string, start, stop int64, desc bool) ([]Z, error)
	// ZScore returns ok=false when member is absent.
	ZScore(ctx context.Context, key, member string) (score float64, ok bool, err error)
	// ZRank returns ok=false when member is absent.
	ZRank(ctx context.Context, key, member string, desc bool) (rank int64, ok bool, err error)

	// Materialize runs m atomically.
	Materialize(ctx context.Context, m Materialization) error

	// Del removes keys (best-effort).
	Del(ctx context.Context, keys ...string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
