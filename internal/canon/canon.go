// Package canon provides tag canonicalization and tag-list plumbing.
// Every equality check in the rules engine is defined on the canonical
// form produced here, so all other packages canonicalize at their edges.
package canon

import "strings"

// Canonicalize normalizes a raw tag: lowercase, hyphens to spaces, runs of
// whitespace collapsed to a single space, surrounding whitespace trimmed.
// Total and idempotent; the empty string canonicalizes to itself.
func Canonicalize(tag string) string {
	cleaned := strings.ToLower(strings.ReplaceAll(tag, "-", " "))
	return strings.Join(strings.Fields(cleaned), " ")
}

// CanonicalizeAll canonicalizes every tag in order, dropping entries that
// canonicalize to the empty string.
func CanonicalizeAll(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if c := Canonicalize(tag); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Dedupe removes duplicates while preserving first-seen order.
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Set builds a membership set from a list of canonical tags.
func Set(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

// SplitList parses a comma-separated tag list as stored in sidecar files.
// Entries are trimmed and empties dropped; no canonicalization is applied,
// so the caller keeps the author's original casing for display.
func SplitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// JoinList serializes tags back to the comma-separated sidecar form.
// Blank entries are dropped so a round trip never grows separators.
func JoinList(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, ", ")
}
