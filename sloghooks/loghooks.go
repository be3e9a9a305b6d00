package sloghooks

import (
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"lukechampine.com/blake3"

	"github.com/unkn0wn-root/rediset"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to a BLAKE3 prefix for leaf-looking
	// keys; derived keys are already digests.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ rediset.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := blake3.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheHit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("rediset.cache_hit", "key", h.redact(key))
}

func (h *Hooks) CacheMiss(key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("rediset.cache_miss", "key", h.redact(key))
}

func (h *Hooks) Materialized(key, op string, ttl, took time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Info("rediset.materialized",
		"key", h.redact(key),
		"op", op,
		"ttl", ttl,
		"took", took)
}

func (h *Hooks) StoreError(stage, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("rediset.store_error",
		"stage", stage,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) UsageRejected(op, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("rediset.usage_rejected",
		"op", op,
		"reason", reason)
}
