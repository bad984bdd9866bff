// Package policy compiles the severity policy document. A nil *Policy is a
// valid receiver meaning "no policy loaded": every lookup falls back to the
// hard defaults, so a rules directory without a policy document still works.
package policy

import (
	"fmt"

	"github.com/tagtidy/tagtidy/internal/canon"
	"github.com/tagtidy/tagtidy/internal/ruleset"
	"github.com/tagtidy/tagtidy/pkg/core"
)

// VersionMismatchError reports a policy pinned against a different taxonomy
// or graph version than the ones loaded alongside it.
type VersionMismatchError struct {
	Field string
	Want  string
	Got   string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("policy pins %s %q but loaded %q", e.Field, e.Want, e.Got)
}

// CategoryRule is the compiled per-category missing-severity override.
type CategoryRule struct {
	// Missing overrides the default missing-required severity. Nil when the
	// category key is present without a missing entry.
	Missing *core.Severity
	// OnlyWhenSignal suppresses missing findings unless the named signal is
	// known true.
	OnlyWhenSignal string
	// UnlessSignal suppresses missing findings when any named signal is
	// known true.
	UnlessSignal []string
	// RelaxedMissing is the severity recorded when the category was relaxed.
	// Nil when unset. Relaxed findings route to the not-required bucket
	// regardless, so this only affects the reported severity.
	RelaxedMissing *core.Severity
}

// Policy is the compiled severity policy.
type Policy struct {
	Version string

	defaults   map[string]core.Severity
	categories map[string]CategoryRule
	tags       map[string]core.Severity
}

// New compiles a policy document, checking its version pins against the
// loaded taxonomy and graph versions. Empty pin fields are unpinned. A nil
// document compiles to a nil policy.
//
// Unrecognized severity strings compile to SeverityUnknown rather than
// failing the load; findings carrying it are dropped at bucket routing.
func New(doc *ruleset.PolicyDoc, taxonomyVersion, graphVersion string) (*Policy, error) {
	if doc == nil {
		return nil, nil
	}
	if doc.TaxonomyVersion != "" && doc.TaxonomyVersion != taxonomyVersion {
		return nil, &VersionMismatchError{Field: "taxonomy_version", Want: doc.TaxonomyVersion, Got: taxonomyVersion}
	}
	if doc.GraphVersion != "" && doc.GraphVersion != graphVersion {
		return nil, &VersionMismatchError{Field: "graph_version", Want: doc.GraphVersion, Got: graphVersion}
	}

	p := &Policy{
		Version:    doc.PolicyVersion,
		defaults:   make(map[string]core.Severity, len(doc.Defaults)),
		categories: make(map[string]CategoryRule, len(doc.CategoryPolicy)),
		tags:       make(map[string]core.Severity, len(doc.TagPolicy)),
	}

	for kind, raw := range doc.Defaults {
		sev, _ := core.ParseSeverity(raw)
		p.defaults[kind] = sev
	}

	for cat, cd := range doc.CategoryPolicy {
		rule := CategoryRule{
			OnlyWhenSignal: cd.OnlyWhenSignal,
			UnlessSignal:   cd.UnlessSignal,
		}
		if cd.Missing != nil {
			sev, _ := core.ParseSeverity(*cd.Missing)
			rule.Missing = &sev
		}
		if cd.RelaxedMissing != "" {
			sev, _ := core.ParseSeverity(cd.RelaxedMissing)
			rule.RelaxedMissing = &sev
		}
		p.categories[cat] = rule
	}

	for tag, td := range doc.TagPolicy {
		key := canon.Canonicalize(tag)
		if key == "" {
			continue
		}
		sev, _ := core.ParseSeverity(td.Severity)
		p.tags[key] = sev
	}

	return p, nil
}

// Default returns the severity for a condition kind, falling back to error
// when the policy is absent or silent.
func (p *Policy) Default(kind core.ConditionKind) core.Severity {
	if p == nil {
		return core.SeverityError
	}
	if sev, ok := p.defaults[kind.String()]; ok {
		return sev
	}
	return core.SeverityError
}

// CategoryRule returns the compiled override for one category.
func (p *Policy) CategoryRule(category string) (CategoryRule, bool) {
	if p == nil {
		return CategoryRule{}, false
	}
	rule, ok := p.categories[category]
	return rule, ok
}

// HasMissingRule reports whether the category carries an explicit missing
// severity. The engine checks such categories even when nothing requires
// them, so a policy can surface optional-but-recommended categories.
func (p *Policy) HasMissingRule(category string) bool {
	if p == nil {
		return false
	}
	rule, ok := p.categories[category]
	return ok && rule.Missing != nil
}

// TagSeverity returns the per-tag severity for a canonical tag.
func (p *Policy) TagSeverity(tag string) (core.Severity, bool) {
	if p == nil {
		return core.SeverityUnknown, false
	}
	sev, ok := p.tags[tag]
	return sev, ok
}
