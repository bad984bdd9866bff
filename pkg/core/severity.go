package core

import "strings"

// =============================================================================
// Severity
// =============================================================================

// Severity classifies a finding and decides which hint bucket it lands in.
type Severity int

// Severity levels for findings.
const (
	// SeverityError indicates a hard requirement violation.
	SeverityError Severity = iota
	// SeverityWarning indicates a likely gap that should be reviewed.
	SeverityWarning
	// SeverityIgnore suppresses a finding into the not-required bucket.
	SeverityIgnore
	// SeverityInfo indicates informational feedback.
	SeverityInfo
	// SeverityUnknown is any severity string the policy vocabulary does not
	// recognize. Findings carrying it are dropped during bucket routing.
	SeverityUnknown
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityIgnore:
		return "ignore"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityUnknown and false if not.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "ignore":
		return SeverityIgnore, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityUnknown, false
	}
}

// =============================================================================
// ConditionKind
// =============================================================================

// ConditionKind names the kind of condition a finding originates from.
// Policy defaults are keyed by these kinds.
type ConditionKind int

// Condition kinds produced during evaluation.
const (
	ConditionMissingRequired ConditionKind = iota
	ConditionForbidden
	ConditionInvalid
	ConditionInfo
)

// String returns the policy-document key for the condition kind.
func (k ConditionKind) String() string {
	switch k {
	case ConditionMissingRequired:
		return "missing_required"
	case ConditionForbidden:
		return "forbidden"
	case ConditionInvalid:
		return "invalid"
	case ConditionInfo:
		return "info"
	default:
		return "unknown"
	}
}
