// Package domain contains the core business entities and workflow logic for
// AI-assisted clinical diagnostic assessments: model descriptors, input
// validation, the per-assessment session state machine, and result
// interpretation.
//
// Classifications rendered by this package are decision support only; a
// clinician confirms or overrides every result before it is persisted.
package domain

import "errors"

// SessionStatus represents the lifecycle state of one assessment session.
// Transitions between statuses are enforced by Session; callers never set
// the status directly.
type SessionStatus string

const (
	StatusEditing    SessionStatus = "EDITING"
	StatusValidating SessionStatus = "VALIDATING"
	StatusSubmitting SessionStatus = "SUBMITTING"
	StatusResulted   SessionStatus = "RESULTED"
	StatusSaving     SessionStatus = "SAVING"
	StatusSaved      SessionStatus = "SAVED"
	StatusFailed     SessionStatus = "FAILED"
)

// SeverityTier is a clinically ordered bucket derived from a prediction,
// used for display coloring and triage.
type SeverityTier string

const (
	TierLow      SeverityTier = "LOW"
	TierModerate SeverityTier = "MODERATE"
	TierHigh     SeverityTier = "HIGH"
	TierCritical SeverityTier = "CRITICAL"
)

// RiskSeverity grades an individual risk factor flagged from submitted input.
type RiskSeverity string

const (
	RiskLow      RiskSeverity = "LOW"
	RiskModerate RiskSeverity = "MODERATE"
	RiskHigh     RiskSeverity = "HIGH"
)

// FieldKind identifies the value type of an assessment input field.
type FieldKind string

const (
	FieldNumber  FieldKind = "NUMBER"
	FieldEnum    FieldKind = "ENUM"
	FieldBoolean FieldKind = "BOOLEAN"
)

// SchemeKind identifies the classification scheme of an assessment model.
type SchemeKind string

const (
	SchemeBinary     SchemeKind = "BINARY"
	SchemeMultiClass SchemeKind = "MULTI_CLASS"
)

// Validation errors for clinical data integrity
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidStatus       = errors.New("invalid session status")
	ErrInvalidSeverityTier = errors.New("invalid severity tier")
	ErrInvalidFieldKind    = errors.New("invalid field kind")
	ErrInvalidSchemeKind   = errors.New("invalid classification scheme kind")
)

// IsValid reports whether the status is one of the defined session states.
func (s SessionStatus) IsValid() bool {
	switch s {
	case StatusEditing, StatusValidating, StatusSubmitting, StatusResulted,
		StatusSaving, StatusSaved, StatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s SessionStatus) String() string {
	return string(s)
}

// HasResult reports whether an interpretation may be present in this status.
// The session invariant is that result is non-nil only when this holds.
func (s SessionStatus) HasResult() bool {
	switch s {
	case StatusResulted, StatusSaving, StatusSaved:
		return true
	default:
		return false
	}
}

// Terminal reports whether the session accepts no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == StatusSaved
}

// LogFields returns structured logging fields for audit trails.
// Critical for traceability of clinical workflow transitions.
func (s SessionStatus) LogFields() map[string]any {
	return map[string]any{
		"status":     string(s),
		"has_result": s.HasResult(),
		"terminal":   s.Terminal(),
		"is_valid":   s.IsValid(),
	}
}

// IsValid validates the severity tier.
func (t SeverityTier) IsValid() bool {
	switch t {
	case TierLow, TierModerate, TierHigh, TierCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the tier.
func (t SeverityTier) String() string {
	return string(t)
}

// Rank returns the triage ordering of the tier, higher is more severe.
func (t SeverityTier) Rank() int {
	switch t {
	case TierLow:
		return 0
	case TierModerate:
		return 1
	case TierHigh:
		return 2
	case TierCritical:
		return 3
	default:
		return -1
	}
}

// RequiresClinicalAttention reports whether the tier should be surfaced for
// clinical follow-up. Conservative for unknown tiers.
func (t SeverityTier) RequiresClinicalAttention() bool {
	switch t {
	case TierLow, TierModerate:
		return false
	case TierHigh, TierCritical:
		return true
	default:
		return true
	}
}

// LogFields returns structured logging fields for audit trails.
func (t SeverityTier) LogFields() map[string]any {
	return map[string]any{
		"severity_tier":      string(t),
		"tier_rank":          t.Rank(),
		"requires_attention": t.RequiresClinicalAttention(),
	}
}

// Rank returns the ordering of the risk severity, higher is more severe.
func (rs RiskSeverity) Rank() int {
	switch rs {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	default:
		return -1
	}
}

// IsValid validates the risk severity grade.
func (rs RiskSeverity) IsValid() bool {
	return rs.Rank() >= 0
}

// IsValid validates the field kind.
func (fk FieldKind) IsValid() bool {
	switch fk {
	case FieldNumber, FieldEnum, FieldBoolean:
		return true
	default:
		return false
	}
}

// IsValid validates the classification scheme kind.
func (sk SchemeKind) IsValid() bool {
	switch sk {
	case SchemeBinary, SchemeMultiClass:
		return true
	default:
		return false
	}
}
