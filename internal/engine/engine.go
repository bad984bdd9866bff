// Package engine wires the taxonomy, applicability graph, and policy into
// the evaluation pipeline. An Engine is immutable after New and safe for
// concurrent use; Evaluate, Categorize, and HintOptions are pure functions
// of their arguments and the loaded documents.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/tagtidy/tagtidy/internal/canon"
	"github.com/tagtidy/tagtidy/internal/policy"
	"github.com/tagtidy/tagtidy/internal/ruleset"
	"github.com/tagtidy/tagtidy/internal/signal"
	"github.com/tagtidy/tagtidy/internal/taxonomy"
	"github.com/tagtidy/tagtidy/pkg/core"
)

// Config holds the engine dependencies.
type Config struct {
	// Documents are the loaded rule documents. Required.
	Documents *ruleset.Documents
	// Logger is the structured logger. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Engine evaluates tag sets against one loaded rule set.
type Engine struct {
	logger *slog.Logger

	taxonomy *taxonomy.Taxonomy
	graph    *signal.Graph
	policy   *policy.Policy
}

// New compiles the documents into an engine. Construction is fail-fast: any
// document defect surfaces here, never from a query method.
func New(cfg Config) (*Engine, error) {
	if cfg.Documents == nil {
		return nil, fmt.Errorf("engine: no documents")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tax, err := taxonomy.New(cfg.Documents.Taxonomy)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}
	graph, err := signal.NewGraph(cfg.Documents.Graph)
	if err != nil {
		return nil, fmt.Errorf("applicability graph: %w", err)
	}
	pol, err := policy.New(cfg.Documents.Policy, tax.Version, graph.Version)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	logger.Debug("engine built",
		"taxonomy_version", tax.Version,
		"graph_version", graph.Version,
		"categories", len(tax.CategoryIDs()),
		"signals", len(graph.Names()),
		"constraints", len(graph.Constraints()),
		"policy", pol != nil)

	return &Engine{
		logger:   logger,
		taxonomy: tax,
		graph:    graph,
		policy:   pol,
	}, nil
}

// Load builds an engine from the rules directory, or from the embedded
// default documents when dir is empty.
func Load(dir string, logger *slog.Logger) (*Engine, error) {
	var (
		docs *ruleset.Documents
		err  error
	)
	if dir == "" {
		docs, err = ruleset.LoadEmbedded()
	} else {
		docs, err = ruleset.Load(dir)
	}
	if err != nil {
		return nil, err
	}
	return New(Config{Documents: docs, Logger: logger})
}

// Taxonomy returns the compiled taxonomy.
func (e *Engine) Taxonomy() *taxonomy.Taxonomy { return e.taxonomy }

// Graph returns the compiled applicability graph.
func (e *Engine) Graph() *signal.Graph { return e.graph }

// HasPolicy reports whether a policy document was loaded.
func (e *Engine) HasPolicy() bool { return e.policy != nil }

// PolicyVersion returns the loaded policy version, empty without a policy.
func (e *Engine) PolicyVersion() string {
	if e.policy == nil {
		return ""
	}
	return e.policy.Version
}

// Categorize canonicalizes the tags and assigns them to categories.
// Tier-3 and unrecognized tags are dropped silently.
func (e *Engine) Categorize(tags []string) map[string][]string {
	return e.taxonomy.Categorize(tags).ByCategory
}

// HintOptions returns the value options for one category. An unknown id
// yields empty options rather than an error.
func (e *Engine) HintOptions(categoryID string) core.HintOptions {
	opts, ok := e.taxonomy.Options(categoryID)
	if !ok {
		return core.HintOptions{Category: categoryID, Options: []string{}}
	}
	return opts
}

// Evaluate classifies a tag set against the rule documents. External signals
// may be partial; absent signals are unknown and constraints gated on them
// never fire.
func (e *Engine) Evaluate(tags []string, externalSignals map[string]bool) core.Hints {
	normalized := canon.CanonicalizeAll(tags)
	tagSet := canon.Set(normalized)

	categorized := e.taxonomy.Categorize(normalized).ByCategory
	values := e.graph.Evaluate(tagSet, externalSignals)
	relaxed := e.relaxedCategories(values)

	return e.buildHints(categorized, values, relaxed, tagSet, canon.Dedupe(normalized))
}

// relaxedCategories collects the categories of every matched relax rule.
func (e *Engine) relaxedCategories(values map[string]signal.Value) map[string]struct{} {
	relaxed := make(map[string]struct{})
	for _, c := range e.graph.Constraints() {
		if len(c.Relax) == 0 || !c.Matches(values) {
			continue
		}
		for _, cat := range c.Relax {
			relaxed[cat] = struct{}{}
		}
	}
	return relaxed
}

// buckets accumulates routed findings before dedup.
type buckets struct {
	missingRequired []string
	possiblyMissing []string
	notRequired     []string
}

func (e *Engine) buildHints(
	categorized map[string][]string,
	values map[string]signal.Value,
	relaxed map[string]struct{},
	tagSet map[string]struct{},
	tags []string,
) core.Hints {
	var b buckets
	var forbidden, invalid, info []string

	// Matched require rules raise effective minimums; a capped max turns an
	// over-full category into an invalid finding.
	requirements := make(map[string][]int)
	for _, c := range e.graph.Constraints() {
		matched := c.Matches(values)
		if len(c.Require) > 0 && matched {
			for _, req := range c.Require {
				requirements[req.Category] = append(requirements[req.Category], req.Min)
				if req.Max != nil && len(categorized[req.Category]) > *req.Max {
					e.route(&b, req.Category, core.ConditionInvalid, e.policy.Default(core.ConditionInvalid), true, false)
					invalid = append(invalid, req.Category)
				}
			}
		}
		if len(c.ForbidTags) > 0 && matched {
			for _, tag := range c.ForbidTags {
				if _, present := tagSet[tag]; present {
					e.route(&b, tag, core.ConditionForbidden, e.policy.Default(core.ConditionForbidden), true, false)
					forbidden = append(forbidden, tag)
				}
			}
		}
	}

	// Singleton check runs unconditionally, independent of signals.
	for _, cat := range e.taxonomy.Categories() {
		if !e.graph.Singleton(cat.ID) && cat.Max != 1 {
			continue
		}
		if len(categorized[cat.ID]) > 1 {
			invalid = append(invalid, cat.ID)
		}
	}

	for _, cat := range e.taxonomy.Categories() {
		present := len(categorized[cat.ID])
		requiredMin := cat.Min
		mins, triggered := requirements[cat.ID]
		for _, m := range mins {
			if m > requiredMin {
				requiredMin = m
			}
		}
		required := requiredMin > 0
		_, isRelaxed := relaxed[cat.ID]

		if !required && !triggered && !e.policy.HasMissingRule(cat.ID) {
			continue
		}

		missing := (requiredMin > 0 && present < requiredMin) ||
			(requiredMin == 0 && present == 0)
		if !missing {
			continue
		}

		sev, ok := e.missingSeverity(cat.ID, values, isRelaxed, required)
		e.route(&b, cat.ID, core.ConditionMissingRequired, sev, ok, isRelaxed)
	}

	// Per-tag policy produces informational findings independent of
	// categorization.
	for _, tag := range tags {
		if sev, ok := e.policy.TagSeverity(tag); ok {
			e.route(&b, tag, core.ConditionInfo, sev, true, false)
			info = append(info, tag)
		}
	}

	hints := core.Hints{
		MissingRequired: dedupeNonNil(b.missingRequired),
		PossiblyMissing: dedupeNonNil(b.possiblyMissing),
		NotRequired:     dedupeNonNil(b.notRequired),
	}
	if len(forbidden) > 0 {
		hints.Forbidden = canon.Dedupe(forbidden)
	}
	if len(invalid) > 0 {
		hints.Invalid = canon.Dedupe(invalid)
	}
	if len(info) > 0 {
		hints.Info = canon.Dedupe(info)
	}
	return hints
}

// dedupeNonNil keeps the always-present buckets as empty slices, not nil,
// so serialized hints always carry all three keys.
func dedupeNonNil(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return canon.Dedupe(items)
}

// missingSeverity resolves the severity of a missing category, in precedence
// order: relaxation, signal gates, explicit override, missing-required
// default. The false return means no finding at all, which happens for
// categories that are merely triggered without any severity source.
func (e *Engine) missingSeverity(categoryID string, values map[string]signal.Value, isRelaxed, required bool) (core.Severity, bool) {
	if isRelaxed {
		return core.SeverityIgnore, true
	}

	rule, _ := e.policy.CategoryRule(categoryID)
	if rule.OnlyWhenSignal != "" {
		if values[rule.OnlyWhenSignal] != signal.True {
			return core.SeverityIgnore, true
		}
	} else {
		for _, name := range rule.UnlessSignal {
			if values[name] == signal.True {
				return core.SeverityIgnore, true
			}
		}
	}

	if rule.Missing != nil {
		return *rule.Missing, true
	}
	if required {
		return e.policy.Default(core.ConditionMissingRequired), true
	}
	return core.SeverityUnknown, false
}

// route places one finding into a hint bucket. Relaxed missing findings are
// forced to not_required. Forbidden and invalid findings only touch buckets
// when suppressed to ignore; otherwise their own lists carry them. Unmapped
// severities drop the finding.
func (e *Engine) route(b *buckets, name string, kind core.ConditionKind, sev core.Severity, ok, isRelaxed bool) {
	if !ok {
		return
	}
	if isRelaxed && kind == core.ConditionMissingRequired {
		b.notRequired = append(b.notRequired, name)
		return
	}
	if kind == core.ConditionForbidden || kind == core.ConditionInvalid {
		if sev == core.SeverityIgnore {
			b.notRequired = append(b.notRequired, name)
		}
		return
	}
	switch sev {
	case core.SeverityError:
		b.missingRequired = append(b.missingRequired, name)
	case core.SeverityWarning, core.SeverityInfo:
		b.possiblyMissing = append(b.possiblyMissing, name)
	case core.SeverityIgnore:
		b.notRequired = append(b.notRequired, name)
	}
}
