// Package ruleset defines the three versioned rule documents the engine
// consumes (taxonomy, applicability graph, policy) and loads them from disk
// or from the embedded defaults. Loading is strict: unknown fields and
// malformed derivations are load errors, never silently ignored.
package ruleset

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Taxonomy document
// =============================================================================

// TaxonomyDoc is the category taxonomy document.
type TaxonomyDoc struct {
	TaxonomyVersion  string                `yaml:"taxonomy_version"`
	Categories       []CategoryDoc         `yaml:"categories"`
	Tier3AllowedTags map[string]Tier3Group `yaml:"tier_3_allowed_tags"`
}

// CategoryDoc declares one category and its value vocabulary.
type CategoryDoc struct {
	ID              string             `yaml:"id"`
	Tier            string             `yaml:"tier"`
	Cardinality     CardinalityDoc     `yaml:"cardinality"`
	Applicability   ApplicabilityDoc   `yaml:"applicability"`
	AllowedValues   []string           `yaml:"allowed_values"`
	PreferredValues []string           `yaml:"preferred_values"`
	FreeformPolicy  *FreeformPolicyDoc `yaml:"freeform_policy"`
}

// CardinalityDoc bounds how many tags of a category an item may carry.
// A missing max defaults to 1 at taxonomy construction.
type CardinalityDoc struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// ApplicabilityDoc names the condition under which the category applies.
type ApplicabilityDoc struct {
	When string `yaml:"when"`
}

// FreeformPolicyDoc declares whether and how a category admits free-form
// values that are not in its allowed/preferred vocabulary. A tag is admitted
// when it contains any of the keywords or matches the pattern.
type FreeformPolicyDoc struct {
	Allowed  bool     `yaml:"allowed"`
	Keywords []string `yaml:"keywords"`
	Pattern  string   `yaml:"pattern"`
}

// Tier3Group is a named group of tags accepted as valid without belonging to
// any category. Groups validated as exact_match_only contribute their
// allowed_values to the allowlist; example values are always accepted.
type Tier3Group struct {
	Validation    string   `yaml:"validation"`
	AllowedValues []string `yaml:"allowed_values"`
	Examples      []string `yaml:"examples"`
}

// =============================================================================
// Applicability graph document
// =============================================================================

// GraphDoc is the applicability graph document: signal declarations plus the
// conditional constraints and consistency checks evaluated over them.
type GraphDoc struct {
	GraphVersion      string                `yaml:"graph_version"`
	Signals           map[string]SignalDoc  `yaml:"signals"`
	Constraints       []ConstraintDoc       `yaml:"constraints"`
	ConsistencyChecks []ConsistencyCheckDoc `yaml:"consistency_checks"`
}

// SignalDoc declares one signal. External signals are supplied by the caller
// at evaluation time; derived signals carry a derivation expression.
type SignalDoc struct {
	Type       string   `yaml:"type"`
	Derivation *ExprDoc `yaml:"derivation"`
}

// ExprDoc is the document form of a derivation expression tree. The wire
// shape is {op, args}; args is an op-specific union, resolved here so
// downstream packages work with a typed tree.
type ExprDoc struct {
	Op       string
	Tag      string     // op == "tag_present"
	Child    *ExprDoc   // op == "not"
	Children []*ExprDoc // op == "all_of" | "any_of"
}

// Derivation expression ops.
const (
	OpTagPresent = "tag_present"
	OpNot        = "not"
	OpAllOf      = "all_of"
	OpAnyOf      = "any_of"
)

// UnmarshalYAML decodes the {op, args} union into the typed tree.
func (e *ExprDoc) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Op   string    `yaml:"op"`
		Args yaml.Node `yaml:"args"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Args.Kind == 0 {
		return fmt.Errorf("derivation op %q: missing args", raw.Op)
	}

	e.Op = raw.Op
	switch raw.Op {
	case OpTagPresent:
		var args struct {
			Tag string `yaml:"tag"`
		}
		if err := raw.Args.Decode(&args); err != nil {
			return fmt.Errorf("derivation op %q: %w", raw.Op, err)
		}
		if args.Tag == "" {
			return fmt.Errorf("derivation op %q: empty tag", raw.Op)
		}
		e.Tag = args.Tag
	case OpNot:
		var child ExprDoc
		if err := raw.Args.Decode(&child); err != nil {
			return fmt.Errorf("derivation op %q: %w", raw.Op, err)
		}
		e.Child = &child
	case OpAllOf, OpAnyOf:
		var children []*ExprDoc
		if err := raw.Args.Decode(&children); err != nil {
			return fmt.Errorf("derivation op %q: %w", raw.Op, err)
		}
		if len(children) == 0 {
			return fmt.Errorf("derivation op %q: empty operand list", raw.Op)
		}
		e.Children = children
	default:
		return fmt.Errorf("unknown derivation op %q", raw.Op)
	}
	return nil
}

// ConditionDoc gates a constraint on one signal value.
type ConditionDoc struct {
	Signal string `yaml:"signal"`
	Equals bool   `yaml:"equals"`
}

// ConstraintDoc pairs a condition with exactly one of a require list, a
// forbid-tags list, or a relax list.
type ConstraintDoc struct {
	When       ConditionDoc `yaml:"when"`
	Require    []RequireDoc `yaml:"require"`
	ForbidTags []string     `yaml:"forbid_tags"`
	Relax      []RelaxDoc   `yaml:"relax"`
}

// RequireDoc raises the effective minimum of a category, optionally capping
// its maximum.
type RequireDoc struct {
	Category string `yaml:"category"`
	Min      int    `yaml:"min"`
	Max      *int   `yaml:"max"`
}

// RelaxDoc suppresses a category's required status.
type RelaxDoc struct {
	Category string `yaml:"category"`
}

// ConsistencyCheckDoc declares a structural check over categories.
// The only rule currently defined is no_more_than_one_value_each.
type ConsistencyCheckDoc struct {
	Rule       string   `yaml:"rule"`
	Categories []string `yaml:"categories"`
}

// RuleSingleValue is the consistency-check rule marking categories as
// single-valued regardless of their declared cardinality.
const RuleSingleValue = "no_more_than_one_value_each"

// =============================================================================
// Policy document
// =============================================================================

// PolicyDoc is the severity policy document, version-pinned against the
// taxonomy and graph documents it was authored for.
type PolicyDoc struct {
	PolicyVersion   string                       `yaml:"policy_version"`
	TaxonomyVersion string                       `yaml:"taxonomy_version"`
	GraphVersion    string                       `yaml:"graph_version"`
	Defaults        map[string]string            `yaml:"defaults"`
	CategoryPolicy  map[string]CategoryPolicyDoc `yaml:"category_policy"`
	TagPolicy       map[string]TagPolicyDoc      `yaml:"tag_policy"`
}

// CategoryPolicyDoc overrides missing-severity handling for one category.
// Missing is a pointer so that an absent key is distinguishable from an
// explicit value; the engine treats categories with any missing rule as
// worth checking even when nothing requires them.
type CategoryPolicyDoc struct {
	Missing        *string  `yaml:"missing"`
	OnlyWhenSignal string   `yaml:"only_when_signal"`
	UnlessSignal   []string `yaml:"unless_signal"`
	RelaxedMissing string   `yaml:"relaxed_missing"`
}

// TagPolicyDoc attaches a severity to a single canonical tag.
type TagPolicyDoc struct {
	Severity string `yaml:"severity"`
}
