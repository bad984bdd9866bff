// Package taxonomy builds the immutable category index from a taxonomy
// document and assigns canonical tags to categories.
package taxonomy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tagtidy/tagtidy/internal/canon"
	"github.com/tagtidy/tagtidy/internal/ruleset"
	"github.com/tagtidy/tagtidy/pkg/core"
)

// DuplicateValueError reports a canonical value claimed by two categories.
// Assignment would depend on category order, so the document is rejected.
type DuplicateValueError struct {
	Value    string
	FirstID  string
	SecondID string
}

func (e *DuplicateValueError) Error() string {
	return fmt.Sprintf("value %q belongs to both %s and %s", e.Value, e.FirstID, e.SecondID)
}

// FreeformMatcher decides whether an unlisted tag is admitted into a
// category that allows free-form values.
type FreeformMatcher struct {
	keywords []string
	pattern  *regexp.Regexp
}

// Matches reports whether the canonical tag is admitted. Keywords match by
// substring, so "arm" admits "raised arms".
func (m *FreeformMatcher) Matches(tag string) bool {
	for _, kw := range m.keywords {
		if strings.Contains(tag, kw) {
			return true
		}
	}
	return m.pattern != nil && m.pattern.MatchString(tag)
}

// Category is the compiled form of one category declaration. Allowed holds
// canonical membership over both the allowed and preferred lists. Values and
// Preferred are the canonical lists in document order; the Raw counterparts
// keep the author's original spelling for hint output.
type Category struct {
	ID           string
	Tier         string
	Min          int
	Max          int
	When         string
	Values       []string
	ValuesRaw    []string
	Preferred    []string
	PreferredRaw []string
	Allowed      map[string]struct{}
	Freeform     *FreeformMatcher
}

// AllowsFreeform reports whether the category admits unlisted values.
func (c *Category) AllowsFreeform() bool {
	return c.Freeform != nil
}

// Taxonomy is the immutable category index for one taxonomy version.
type Taxonomy struct {
	Version string

	categories map[string]*Category
	order      []string
	valueIndex map[string]string
	tier3      map[string]struct{}
}

// New compiles a taxonomy document. It canonicalizes every declared value,
// rejects values claimed by more than one category, and defaults a missing
// cardinality max to one.
func New(doc *ruleset.TaxonomyDoc) (*Taxonomy, error) {
	t := &Taxonomy{
		Version:    doc.TaxonomyVersion,
		categories: make(map[string]*Category, len(doc.Categories)),
		order:      make([]string, 0, len(doc.Categories)),
		valueIndex: make(map[string]string),
		tier3:      make(map[string]struct{}),
	}

	for _, cd := range doc.Categories {
		if cd.ID == "" {
			return nil, fmt.Errorf("category with empty id")
		}
		if _, dup := t.categories[cd.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cd.ID)
		}

		cat := &Category{
			ID:      cd.ID,
			Tier:    cd.Tier,
			Min:     cd.Cardinality.Min,
			Max:     cd.Cardinality.Max,
			When:    cd.Applicability.When,
			Allowed: make(map[string]struct{}, len(cd.AllowedValues)+len(cd.PreferredValues)),
		}
		if cat.Max == 0 {
			cat.Max = 1
		}

		for _, raw := range cd.AllowedValues {
			value := canon.Canonicalize(raw)
			if value == "" {
				continue
			}
			if owner, claimed := t.valueIndex[value]; claimed {
				return nil, &DuplicateValueError{Value: value, FirstID: owner, SecondID: cd.ID}
			}
			if _, seen := cat.Allowed[value]; seen {
				continue
			}
			cat.Allowed[value] = struct{}{}
			cat.Values = append(cat.Values, value)
			cat.ValuesRaw = append(cat.ValuesRaw, strings.TrimSpace(raw))
			t.valueIndex[value] = cd.ID
		}

		// Preferred values are full members of the category even when they do
		// not repeat in allowed_values, so they index like any other value.
		seenPreferred := make(map[string]struct{}, len(cd.PreferredValues))
		for _, raw := range cd.PreferredValues {
			value := canon.Canonicalize(raw)
			if value == "" {
				continue
			}
			if _, dup := seenPreferred[value]; dup {
				continue
			}
			seenPreferred[value] = struct{}{}
			if owner, claimed := t.valueIndex[value]; claimed && owner != cd.ID {
				return nil, &DuplicateValueError{Value: value, FirstID: owner, SecondID: cd.ID}
			}
			cat.Preferred = append(cat.Preferred, value)
			cat.PreferredRaw = append(cat.PreferredRaw, strings.TrimSpace(raw))
			if _, ok := cat.Allowed[value]; !ok {
				cat.Allowed[value] = struct{}{}
				t.valueIndex[value] = cd.ID
			}
		}

		if fp := cd.FreeformPolicy; fp != nil && fp.Allowed {
			m := &FreeformMatcher{keywords: canon.CanonicalizeAll(fp.Keywords)}
			if fp.Pattern != "" {
				re, err := regexp.Compile(fp.Pattern)
				if err != nil {
					return nil, fmt.Errorf("category %s: freeform pattern: %w", cd.ID, err)
				}
				m.pattern = re
			}
			cat.Freeform = m
		}

		t.categories[cd.ID] = cat
		t.order = append(t.order, cd.ID)
	}

	for _, group := range doc.Tier3AllowedTags {
		for _, raw := range group.AllowedValues {
			if v := canon.Canonicalize(raw); v != "" {
				t.tier3[v] = struct{}{}
			}
		}
		for _, raw := range group.Examples {
			if v := canon.Canonicalize(raw); v != "" {
				t.tier3[v] = struct{}{}
			}
		}
	}

	return t, nil
}

// Category returns the compiled category by id.
func (t *Taxonomy) Category(id string) (*Category, bool) {
	c, ok := t.categories[id]
	return c, ok
}

// Categories returns the compiled categories in document order.
func (t *Taxonomy) Categories() []*Category {
	out := make([]*Category, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.categories[id])
	}
	return out
}

// CategoryIDs returns the category ids in document order.
func (t *Taxonomy) CategoryIDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// IsTier3 reports whether the canonical tag is on the standalone allowlist.
func (t *Taxonomy) IsTier3(tag string) bool {
	_, ok := t.tier3[tag]
	return ok
}

// Categorization is the result of assigning a tag list to categories.
type Categorization struct {
	// ByCategory maps category id to its canonical tags in input order.
	// Only categories with at least one tag appear.
	ByCategory map[string][]string
	// Tier3 holds tags accepted from the standalone allowlist.
	Tier3 []string
	// Unknown holds tags no category or allowlist accepts.
	Unknown []string
}

// Categorize canonicalizes and deduplicates the raw tags, then assigns each
// to its category. Listed membership wins over free-form admission; a
// free-form tag goes to the first admitting category in document order.
func (t *Taxonomy) Categorize(rawTags []string) *Categorization {
	tags := canon.Dedupe(canon.CanonicalizeAll(rawTags))
	res := &Categorization{ByCategory: make(map[string][]string)}

	for _, tag := range tags {
		if id, ok := t.valueIndex[tag]; ok {
			res.ByCategory[id] = append(res.ByCategory[id], tag)
			continue
		}
		if id, ok := t.freeformHome(tag); ok {
			res.ByCategory[id] = append(res.ByCategory[id], tag)
			continue
		}
		if t.IsTier3(tag) {
			res.Tier3 = append(res.Tier3, tag)
			continue
		}
		res.Unknown = append(res.Unknown, tag)
	}

	return res
}

func (t *Taxonomy) freeformHome(tag string) (string, bool) {
	for _, id := range t.order {
		cat := t.categories[id]
		if cat.Freeform != nil && cat.Freeform.Matches(tag) {
			return id, true
		}
	}
	return "", false
}

// Options returns the hint options for one category: preferred values first,
// then the remaining allowed values in document order. Values keep the
// spelling the document author wrote; matching stays canonical.
func (t *Taxonomy) Options(id string) (core.HintOptions, bool) {
	cat, ok := t.categories[id]
	if !ok {
		return core.HintOptions{}, false
	}

	opts := core.HintOptions{
		Category:       id,
		AllowsFreeform: cat.AllowsFreeform(),
	}
	seen := make(map[string]struct{}, len(cat.Preferred)+len(cat.Values))
	for i, v := range cat.Preferred {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		opts.Options = append(opts.Options, cat.PreferredRaw[i])
	}
	for i, v := range cat.Values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		opts.Options = append(opts.Options, cat.ValuesRaw[i])
	}
	return opts, true
}

// Tier3Tags returns the standalone allowlist, sorted for stable output.
func (t *Taxonomy) Tier3Tags() []string {
	out := make([]string, 0, len(t.tier3))
	for tag := range t.tier3 {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
