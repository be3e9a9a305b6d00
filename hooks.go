package rediset

import "time"

// Hooks lightweight callbacks for high-signal evaluator events.
// Implementations MUST be cheap and non-blocking.
// The evaluator calls them on every read.
type Hooks interface {
	// An operation node's cached result was live; its subtree was skipped.
	CacheHit(key string)

	// An operation node had no live result and will be materialized.
	CacheMiss(key string)

	// A result was computed and stored. op ∈ {"union", "intersection", "difference"}.
	Materialized(key, op string, ttl, took time.Duration)

	// A store round-trip failed. stage ∈ {"exists", "materialize", "read", "write", "invalidate"}.
	StoreError(stage, key string, err error)

	// A call was rejected with a *UsageError.
	UsageRejected(op, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CacheHit(string)                                           {}
func (NopHooks) CacheMiss(string)                                          {}
func (NopHooks) Materialized(string, string, time.Duration, time.Duration) {}
func (NopHooks) StoreError(string, string, error)                          {}
func (NopHooks) UsageRejected(string, string)                              {}

// MultiHooks fans every event out to each element in order.
type MultiHooks []Hooks

var _ Hooks = MultiHooks(nil)

func (m MultiHooks) CacheHit(key string) {
	for _, h := range m {
		h.CacheHit(key)
	}
}

func (m MultiHooks) CacheMiss(key string) {
	for _, h := range m {
		h.CacheMiss(key)
	}
}

func (m MultiHooks) Materialized(key, op string, ttl, took time.Duration) {
	for _, h := range m {
		h.Materialized(key, op, ttl, took)
	}
}

func (m MultiHooks) StoreError(stage, key string, err error) {
	for _, h := range m {
		h.StoreError(stage, key, err)
	}
}

func (m MultiHooks) UsageRejected(op, reason string) {
	for _, h := range m {
		h.UsageRejected(op, reason)
	}
}
