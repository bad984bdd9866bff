// Package signal evaluates tri-state signals and the conditional constraints
// of the applicability graph. External signals come from the caller and are
// unknown when absent; derived signals are computed from the canonical tag
// set. Constraints gated on an unknown signal never fire.
package signal

import (
	"fmt"
	"sort"

	"github.com/tagtidy/tagtidy/internal/canon"
	"github.com/tagtidy/tagtidy/internal/ruleset"
)

// Value is a tri-state signal value.
type Value int

// Signal values. Unknown is the zero value so an unset signal reads as
// unknown, not false.
const (
	Unknown Value = iota
	False
	True
)

// String returns the string form of the value.
func (v Value) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// FromBool lifts a known boolean into a Value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// =============================================================================
// Expressions
// =============================================================================

// Expr is a compiled derivation expression evaluated over a canonical tag set.
type Expr interface {
	Eval(tags map[string]struct{}) Value
}

// TagPresent is true when the canonical tag is in the set.
type TagPresent struct {
	Tag string
}

func (e TagPresent) Eval(tags map[string]struct{}) Value {
	_, ok := tags[e.Tag]
	return FromBool(ok)
}

// Not negates its operand; unknown stays unknown.
type Not struct {
	X Expr
}

func (e Not) Eval(tags map[string]struct{}) Value {
	switch e.X.Eval(tags) {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// AllOf is the three-valued conjunction: false dominates, then unknown.
type AllOf struct {
	Xs []Expr
}

func (e AllOf) Eval(tags map[string]struct{}) Value {
	out := True
	for _, x := range e.Xs {
		switch x.Eval(tags) {
		case False:
			return False
		case Unknown:
			out = Unknown
		}
	}
	return out
}

// AnyOf is the three-valued disjunction: true dominates, then unknown.
type AnyOf struct {
	Xs []Expr
}

func (e AnyOf) Eval(tags map[string]struct{}) Value {
	out := False
	for _, x := range e.Xs {
		switch x.Eval(tags) {
		case True:
			return True
		case Unknown:
			out = Unknown
		}
	}
	return out
}

// Compile turns a derivation document into an evaluable expression.
// Tag operands are canonicalized so evaluation matches the engine's tag sets.
func Compile(doc *ruleset.ExprDoc) (Expr, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil derivation")
	}
	switch doc.Op {
	case ruleset.OpTagPresent:
		tag := canon.Canonicalize(doc.Tag)
		if tag == "" {
			return nil, fmt.Errorf("tag_present: empty tag")
		}
		return TagPresent{Tag: tag}, nil
	case ruleset.OpNot:
		child, err := Compile(doc.Child)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return Not{X: child}, nil
	case ruleset.OpAllOf, ruleset.OpAnyOf:
		xs := make([]Expr, 0, len(doc.Children))
		for _, c := range doc.Children {
			x, err := Compile(c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", doc.Op, err)
			}
			xs = append(xs, x)
		}
		if len(xs) == 0 {
			return nil, fmt.Errorf("%s: no operands", doc.Op)
		}
		if doc.Op == ruleset.OpAllOf {
			return AllOf{Xs: xs}, nil
		}
		return AnyOf{Xs: xs}, nil
	default:
		return nil, fmt.Errorf("unknown derivation op %q", doc.Op)
	}
}

// =============================================================================
// Graph
// =============================================================================

// Kind distinguishes caller-supplied from tag-derived signals.
type Kind int

const (
	KindExternal Kind = iota
	KindDerived
)

// Definition is one compiled signal declaration.
type Definition struct {
	Name string
	Kind Kind
	Expr Expr // nil for external signals
}

// Requirement raises a category's effective minimum, optionally capping max.
type Requirement struct {
	Category string
	Min      int
	Max      *int
}

// Constraint is a compiled conditional constraint. Exactly one of Require,
// ForbidTags, and Relax is non-empty.
type Constraint struct {
	Signal     string
	Equals     bool
	Require    []Requirement
	ForbidTags []string
	Relax      []string
}

// Matches reports whether the constraint fires for the given signal values.
// Unknown never matches either polarity.
func (c *Constraint) Matches(values map[string]Value) bool {
	switch values[c.Signal] {
	case True:
		return c.Equals
	case False:
		return !c.Equals
	default:
		return false
	}
}

// Graph is the compiled applicability graph for one graph version.
type Graph struct {
	Version string

	defs        map[string]*Definition
	names       []string
	constraints []Constraint
	singletons  map[string]struct{}
}

// NewGraph compiles a graph document: signal declarations are validated and
// their derivations compiled, constraint payloads checked for the
// exactly-one-of shape, and forbid lists canonicalized.
func NewGraph(doc *ruleset.GraphDoc) (*Graph, error) {
	g := &Graph{
		Version:    doc.GraphVersion,
		defs:       make(map[string]*Definition, len(doc.Signals)),
		singletons: make(map[string]struct{}),
	}

	for name, sd := range doc.Signals {
		def := &Definition{Name: name}
		switch sd.Type {
		case "external":
			if sd.Derivation != nil {
				return nil, fmt.Errorf("signal %s: external signals cannot carry a derivation", name)
			}
			def.Kind = KindExternal
		case "derived":
			if sd.Derivation == nil {
				return nil, fmt.Errorf("signal %s: derived signal without derivation", name)
			}
			expr, err := Compile(sd.Derivation)
			if err != nil {
				return nil, fmt.Errorf("signal %s: %w", name, err)
			}
			def.Kind = KindDerived
			def.Expr = expr
		default:
			return nil, fmt.Errorf("signal %s: unknown type %q", name, sd.Type)
		}
		g.defs[name] = def
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)

	for i, cd := range doc.Constraints {
		if cd.When.Signal == "" {
			return nil, fmt.Errorf("constraint %d: missing when.signal", i)
		}
		if _, ok := g.defs[cd.When.Signal]; !ok {
			return nil, fmt.Errorf("constraint %d: undeclared signal %q", i, cd.When.Signal)
		}

		payloads := 0
		c := Constraint{Signal: cd.When.Signal, Equals: cd.When.Equals}
		if len(cd.Require) > 0 {
			payloads++
			for _, rd := range cd.Require {
				if rd.Category == "" {
					return nil, fmt.Errorf("constraint %d: require entry without category", i)
				}
				c.Require = append(c.Require, Requirement{Category: rd.Category, Min: rd.Min, Max: rd.Max})
			}
		}
		if len(cd.ForbidTags) > 0 {
			payloads++
			c.ForbidTags = canon.Dedupe(canon.CanonicalizeAll(cd.ForbidTags))
		}
		if len(cd.Relax) > 0 {
			payloads++
			for _, rd := range cd.Relax {
				if rd.Category == "" {
					return nil, fmt.Errorf("constraint %d: relax entry without category", i)
				}
				c.Relax = append(c.Relax, rd.Category)
			}
		}
		if payloads != 1 {
			return nil, fmt.Errorf("constraint %d: want exactly one of require, forbid_tags, relax; got %d", i, payloads)
		}
		g.constraints = append(g.constraints, c)
	}

	for _, check := range doc.ConsistencyChecks {
		if check.Rule != ruleset.RuleSingleValue {
			return nil, fmt.Errorf("unknown consistency rule %q", check.Rule)
		}
		for _, cat := range check.Categories {
			g.singletons[cat] = struct{}{}
		}
	}

	return g, nil
}

// Definition returns the compiled declaration for one signal.
func (g *Graph) Definition(name string) (*Definition, bool) {
	d, ok := g.defs[name]
	return d, ok
}

// Names returns all declared signal names, sorted.
func (g *Graph) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Constraints returns the compiled constraints in document order.
func (g *Graph) Constraints() []Constraint {
	return g.constraints
}

// Singleton reports whether a consistency check caps the category at one
// value regardless of its declared cardinality.
func (g *Graph) Singleton(category string) bool {
	_, ok := g.singletons[category]
	return ok
}

// Evaluate resolves every declared signal. External signals read from the
// caller-supplied map and are unknown when absent; derived signals are
// computed from the tag set. Externals never override derived signals.
func (g *Graph) Evaluate(tags map[string]struct{}, externals map[string]bool) map[string]Value {
	values := make(map[string]Value, len(g.defs))
	for _, name := range g.names {
		def := g.defs[name]
		if def.Kind == KindDerived {
			values[name] = def.Expr.Eval(tags)
			continue
		}
		if b, ok := externals[name]; ok {
			values[name] = FromBool(b)
		} else {
			values[name] = Unknown
		}
	}
	return values
}
