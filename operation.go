package rediset

import (
	"fmt"
	"math"
	"time"

	"github.com/unkn0wn-root/rediset/internal/keys"
	"github.com/unkn0wn-root/rediset/internal/wire"
	"github.com/unkn0wn-root/rediset/store"
)

// OpOption tunes one operation node. Pass it among the operands.
type OpOption func(*opConfig)

type opConfig struct {
	ttl       *time.Duration
	aggregate *store.Aggregate
	weights   []float64
}

// CacheFor overrides the factory DefaultTTL for this node. Zero is honored:
// the result is never reused and every read recomputes it.
func CacheFor(d time.Duration) OpOption {
	return func(c *opConfig) { c.ttl = &d }
}

// CacheSeconds is CacheFor in whole seconds.
func CacheSeconds(n int) OpOption {
	return CacheFor(time.Duration(n) * time.Second)
}

// WithAggregate sets how scores of a member found in several sorted operands
// combine. Sorted operations only; default Sum.
func WithAggregate(a Aggregate) OpOption {
	return func(c *opConfig) { c.aggregate = &a }
}

func validAggregate(a Aggregate) bool {
	switch a {
	case Sum, Min, Max:
		return true
	}
	return false
}

// WithWeights multiplies each operand's scores by the weight at the same
// position. Sorted operations only; one weight per operand.
func WithWeights(w ...float64) OpOption {
	return func(c *opConfig) { c.weights = append([]float64(nil), w...) }
}

// Operation is a derived node over plain sets. It has no mutation methods.
type Operation struct {
	node
}

var _ Node = (*Operation)(nil)

// Op returns the set operation this node performs.
func (o *Operation) Op() store.Op { return o.op.kind }

// Children returns the operands in construction order.
func (o *Operation) Children() []Node { return append([]Node(nil), o.op.children...) }

// CacheTTL returns how long a materialized result is reused.
func (o *Operation) CacheTTL() time.Duration { return o.op.ttl }

// SortedOperation is a derived node over sorted sets.
type SortedOperation struct {
	sortedNode
}

var _ SortedNode = (*SortedOperation)(nil)

func (o *SortedOperation) Op() store.Op            { return o.op.kind }
func (o *SortedOperation) Children() []Node        { return append([]Node(nil), o.op.children...) }
func (o *SortedOperation) CacheTTL() time.Duration { return o.op.ttl }
func (o *SortedOperation) Aggregate() Aggregate    { return o.op.aggregate }
func (o *SortedOperation) Weights() []float64      { return append([]float64(nil), o.op.weights...) }

func (r *Rediset) operation(kind store.Op, operands []any) (Node, error) {
	name := kind.String()

	var (
		children []Node
		cfg      opConfig
	)
	for i, it := range operands {
		switch v := it.(type) {
		case nil:
			return nil, r.reject(usageErr(name, fmt.Sprintf("operand %d is nil", i)))
		case string:
			children = append(children, r.Set(v))
		case Node:
			if v.base().rs != r {
				return nil, r.reject(usageErr(name, fmt.Sprintf("operand %d belongs to another Rediset", i)))
			}
			children = append(children, v)
		case OpOption:
			v(&cfg)
		default:
			return nil, r.reject(usageErr(name, fmt.Sprintf("operand %d has unsupported type %T", i, it)))
		}
	}

	if len(children) == 0 {
		return nil, r.reject(usageErr(name, "no operands"))
	}
	if len(children) == 1 {
		return children[0], nil
	}

	sorted := false
	for _, c := range children {
		if c.base().sorted {
			sorted = true
			break
		}
	}
	if sorted && kind == store.OpDifference {
		return nil, r.reject(usageErr(name, "not supported for sorted sets"))
	}
	if !sorted && (cfg.aggregate != nil || cfg.weights != nil) {
		return nil, r.reject(usageErr(name, "aggregate and weights need sorted operands"))
	}
	if cfg.aggregate != nil && !validAggregate(*cfg.aggregate) {
		return nil, r.reject(usageErr(name, fmt.Sprintf("unknown aggregate %d", *cfg.aggregate)))
	}
	if cfg.weights != nil && len(cfg.weights) != len(children) {
		return nil, r.reject(usageErr(name, fmt.Sprintf("%d weights for %d operands", len(cfg.weights), len(children))))
	}
	for _, w := range cfg.weights {
		if math.IsNaN(w) {
			return nil, r.reject(usageErr(name, "NaN weight"))
		}
	}
	if cfg.ttl != nil && *cfg.ttl < 0 {
		return nil, r.reject(usageErr(name, "negative cache TTL"))
	}

	def := &opSpec{
		kind:     kind,
		children: children,
		ttl:      resolveTTL(cfg.ttl, r.defaultTTL),
		weights:  cfg.weights,
	}
	if cfg.aggregate != nil {
		def.aggregate = *cfg.aggregate
	}

	childKeys := make([]string, len(children))
	for i, c := range children {
		childKeys[i] = c.Key()
	}
	digest := keys.Digest(wire.Descriptor{
		Op:        byte(kind),
		Sorted:    sorted,
		Aggregate: byte(def.aggregate),
		Weights:   def.weights,
		Children:  childKeys,
	})
	def.marker = keys.Marker(r.prefix, digest)
	key := keys.Operation(r.prefix, digest)

	if sorted {
		o := &SortedOperation{}
		o.node = node{rs: r, key: key, sorted: true, op: def, self: o}
		return o, nil
	}
	o := &Operation{}
	o.node = node{rs: r, key: key, op: def, self: o}
	return o, nil
}
