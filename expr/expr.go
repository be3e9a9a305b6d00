// Package expr reads set expressions from YAML and builds them into rediset
// nodes.
//
// A plain scalar is a leaf set name. A mapping is either a leaf with
// options or an operation:
//
//	op: union
//	cache_seconds: 120
//	children:
//	  - op: intersection
//	    children: [nirvana, foo_fighters]
//	  - op: intersection
//	    children: [blur, gorillaz]
package expr

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/rediset"
)

var ErrInvalid = errors.New("expr: invalid expression")

// Expr is one vertex of a parsed expression.
type Expr struct {
	Op           string    `yaml:"op,omitempty"`   // union | intersection | difference; empty for leaves
	Name         string    `yaml:"name,omitempty"` // leaves only
	Sorted       bool      `yaml:"sorted,omitempty"`
	Children     []Expr    `yaml:"children,omitempty"`
	CacheSeconds *int      `yaml:"cache_seconds,omitempty"`
	Aggregate    string    `yaml:"aggregate,omitempty"` // sum | min | max
	Weights      []float64 `yaml:"weights,omitempty"`
}

// UnmarshalYAML accepts a bare scalar as a leaf set name.
func (e *Expr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*e = Expr{Name: n.Value}
		return nil
	}
	type plain Expr
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*e = Expr(p)
	return nil
}

func (e Expr) IsLeaf() bool { return e.Op == "" }

// Parse decodes and validates one expression document.
func Parse(data []byte) (Expr, error) {
	var e Expr
	if err := yaml.Unmarshal(data, &e); err != nil {
		return Expr{}, fmt.Errorf("parsing expression: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Expr{}, err
	}
	return e, nil
}

// Load reads and parses an expression file.
func Load(path string) (Expr, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Expr{}, fmt.Errorf("reading expression file: %w", err)
	}
	return Parse(data)
}

// Validate checks the shape of the tree. Set-algebra rules such as sorted
// difference are left to the rediset builders.
func (e Expr) Validate() error {
	return e.validate("$")
}

func (e Expr) validate(path string) error {
	if e.IsLeaf() {
		switch {
		case e.Name == "":
			return fmt.Errorf("%w: %s: leaf without a name", ErrInvalid, path)
		case len(e.Children) > 0:
			return fmt.Errorf("%w: %s: leaf %q has children", ErrInvalid, path, e.Name)
		case e.CacheSeconds != nil || e.Aggregate != "" || e.Weights != nil:
			return fmt.Errorf("%w: %s: leaf %q has operation options", ErrInvalid, path, e.Name)
		}
		return nil
	}

	if _, ok := ops[strings.ToLower(e.Op)]; !ok {
		return fmt.Errorf("%w: %s: unknown op %q", ErrInvalid, path, e.Op)
	}
	if e.Name != "" {
		return fmt.Errorf("%w: %s: operations are unnamed", ErrInvalid, path)
	}
	if len(e.Children) == 0 {
		return fmt.Errorf("%w: %s: %s without children", ErrInvalid, path, e.Op)
	}
	if e.CacheSeconds != nil && *e.CacheSeconds < 0 {
		return fmt.Errorf("%w: %s: negative cache_seconds", ErrInvalid, path)
	}
	if _, err := parseAggregate(e.Aggregate); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	for i, c := range e.Children {
		if err := c.validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

type builder func(*rediset.Rediset, ...any) (rediset.Node, error)

var ops = map[string]builder{
	"union":        (*rediset.Rediset).Union,
	"intersection": (*rediset.Rediset).Intersection,
	"difference":   (*rediset.Rediset).Difference,
}

func parseAggregate(s string) (rediset.Aggregate, error) {
	switch strings.ToLower(s) {
	case "", "sum":
		return rediset.Sum, nil
	case "min":
		return rediset.Min, nil
	case "max":
		return rediset.Max, nil
	}
	return 0, fmt.Errorf("unknown aggregate %q", s)
}

// Build turns e into nodes owned by rs. No store access.
func Build(rs *rediset.Rediset, e Expr) (rediset.Node, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return build(rs, e)
}

func build(rs *rediset.Rediset, e Expr) (rediset.Node, error) {
	if e.IsLeaf() {
		if e.Sorted {
			return rs.SortedSet(e.Name), nil
		}
		return rs.Set(e.Name), nil
	}

	operands := make([]any, 0, len(e.Children)+3)
	for _, c := range e.Children {
		n, err := build(rs, c)
		if err != nil {
			return nil, err
		}
		operands = append(operands, n)
	}
	if e.CacheSeconds != nil {
		operands = append(operands, rediset.CacheFor(time.Duration(*e.CacheSeconds)*time.Second))
	}
	if e.Aggregate != "" {
		agg, _ := parseAggregate(e.Aggregate)
		operands = append(operands, rediset.WithAggregate(agg))
	}
	if e.Weights != nil {
		operands = append(operands, rediset.WithWeights(e.Weights...))
	}
	return ops[strings.ToLower(e.Op)](rs, operands...)
}
