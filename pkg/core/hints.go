package core

// Hints is the result of one evaluation. The three main buckets are always
// present, possibly empty; the remaining lists appear only when non-empty.
// Every bucket is deduplicated and preserves first-seen order.
type Hints struct {
	// MissingRequired lists categories whose absence blocks the item.
	MissingRequired []string `json:"missing_required"`
	// PossiblyMissing lists categories worth reviewing.
	PossiblyMissing []string `json:"possibly_missing"`
	// NotRequired lists categories whose absence was suppressed by
	// relaxation, signal gating, or an ignore severity.
	NotRequired []string `json:"not_required"`
	// Forbidden lists present tags a matched forbid rule outlaws.
	Forbidden []string `json:"forbidden,omitempty"`
	// Invalid lists categories violating cardinality.
	Invalid []string `json:"invalid,omitempty"`
	// Info lists tags with an informational policy severity.
	Info []string `json:"info,omitempty"`
}

// HintOptions is the value picker payload for one category.
type HintOptions struct {
	Category       string   `json:"category"`
	Options        []string `json:"options"`
	AllowsFreeform bool     `json:"allows_freeform"`
}
