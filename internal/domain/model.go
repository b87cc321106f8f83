package domain

import (
	"errors"
	"fmt"
)

// FieldSpec declares one assessment input field with its validation rule.
// Numeric bounds are inclusive and clinically meaningful (e.g. BMI 10-60,
// HbA1c 3-15); values outside them never reach the prediction service.
type FieldSpec struct {
	Name          string    `json:"name" validate:"required"`
	Label         string    `json:"label"`
	Kind          FieldKind `json:"kind" validate:"required"`
	Required      bool      `json:"required"`
	Min           float64   `json:"min,omitempty"`
	Max           float64   `json:"max,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	AllowedValues []string  `json:"allowed_values,omitempty"`
}

// Validate ensures the field spec is internally consistent.
func (fs *FieldSpec) Validate() error {
	if fs.Name == "" {
		return fmt.Errorf("field spec validation: %w", errors.New("name is required"))
	}
	if !fs.Kind.IsValid() {
		return fmt.Errorf("field spec validation: %w", ErrInvalidFieldKind)
	}
	if fs.Kind == FieldNumber && fs.Min >= fs.Max {
		return fmt.Errorf("field spec validation: field %s has empty range [%g,%g]", fs.Name, fs.Min, fs.Max)
	}
	if fs.Kind == FieldEnum && len(fs.AllowedValues) == 0 {
		return fmt.Errorf("field spec validation: enum field %s declares no allowed values", fs.Name)
	}
	return nil
}

// ClassSpec declares one class of a multi-class scheme. OrderedClasses are
// declared in clinical severity order, not alphabetically; SeverityRank makes
// that ordering explicit for interpretation and display.
type ClassSpec struct {
	Code         string       `json:"code" validate:"required"`
	Label        string       `json:"label"`
	SeverityRank int          `json:"severity_rank"`
	Tier         SeverityTier `json:"tier"`
}

// ClassificationScheme is the tagged-variant classification declaration of an
// assessment model: either a binary positive/negative outcome or an ordered
// multi-class staging.
type ClassificationScheme struct {
	Kind SchemeKind `json:"kind" validate:"required"`

	// Binary scheme
	PositiveLabel string `json:"positive_label,omitempty"`
	NegativeLabel string `json:"negative_label,omitempty"`

	// Multi-class scheme, ordered by ascending clinical severity
	OrderedClasses []ClassSpec `json:"ordered_classes,omitempty"`
}

// Validate ensures the scheme declaration is usable for interpretation.
func (cs *ClassificationScheme) Validate() error {
	if !cs.Kind.IsValid() {
		return fmt.Errorf("scheme validation: %w", ErrInvalidSchemeKind)
	}
	switch cs.Kind {
	case SchemeBinary:
		if cs.PositiveLabel == "" || cs.NegativeLabel == "" {
			return fmt.Errorf("scheme validation: %w", errors.New("binary scheme requires positive and negative labels"))
		}
	case SchemeMultiClass:
		if len(cs.OrderedClasses) < 2 {
			return fmt.Errorf("scheme validation: %w", errors.New("multi-class scheme requires at least two classes"))
		}
		seen := make(map[string]bool, len(cs.OrderedClasses))
		for _, c := range cs.OrderedClasses {
			if c.Code == "" {
				return fmt.Errorf("scheme validation: %w", errors.New("class code is required"))
			}
			if seen[c.Code] {
				return fmt.Errorf("scheme validation: duplicate class code %s", c.Code)
			}
			if !c.Tier.IsValid() {
				return fmt.Errorf("scheme validation: class %s: %w", c.Code, ErrInvalidSeverityTier)
			}
			seen[c.Code] = true
		}
	}
	return nil
}

// ClassByCode looks up a declared class by its code. Returns false when the
// code is not part of the scheme.
func (cs *ClassificationScheme) ClassByCode(code string) (ClassSpec, bool) {
	for _, c := range cs.OrderedClasses {
		if c.Code == code {
			return c, true
		}
	}
	return ClassSpec{}, false
}

// RiskOp is the comparison direction of a risk rule threshold.
type RiskOp string

const (
	RiskAbove RiskOp = "ABOVE" // flagged when value > threshold
	RiskBelow RiskOp = "BELOW" // flagged when value < threshold
)

// RiskRule flags a submitted value that crosses a clinically defined
// threshold, surfaced alongside the classification with a severity and a
// human-readable explanation.
type RiskRule struct {
	Field       string       `json:"field" validate:"required"`
	Op          RiskOp       `json:"op"`
	Threshold   float64      `json:"threshold"`
	Severity    RiskSeverity `json:"severity"`
	Description string       `json:"description"`
}

// Crossed reports whether the submitted value triggers this rule.
func (r *RiskRule) Crossed(value float64) bool {
	if r.Op == RiskBelow {
		return value < r.Threshold
	}
	return value > r.Threshold
}

// AssessmentModel is the declarative descriptor of one disease module:
// ordered input fields with their ranges, the classification scheme, and the
// risk-factor rules. Each disease is data only; a single generic session and
// interpreter execute every model.
type AssessmentModel struct {
	ID          string               `json:"id" validate:"required"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Fields      []FieldSpec          `json:"fields" validate:"required"`
	Scheme      ClassificationScheme `json:"scheme"`
	RiskRules   []RiskRule           `json:"risk_rules,omitempty"`
}

// Validate ensures the model descriptor is complete and consistent. Called
// once at registry construction; a model that fails here never serves
// assessments.
func (m *AssessmentModel) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("model validation: %w", errors.New("ID is required"))
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("model validation: model %s declares no fields", m.ID)
	}
	seen := make(map[string]bool, len(m.Fields))
	for i := range m.Fields {
		if err := m.Fields[i].Validate(); err != nil {
			return fmt.Errorf("model %s: %w", m.ID, err)
		}
		if seen[m.Fields[i].Name] {
			return fmt.Errorf("model validation: model %s declares field %s twice", m.ID, m.Fields[i].Name)
		}
		seen[m.Fields[i].Name] = true
	}
	if err := m.Scheme.Validate(); err != nil {
		return fmt.Errorf("model %s: %w", m.ID, err)
	}
	for _, rule := range m.RiskRules {
		if !seen[rule.Field] {
			return fmt.Errorf("model validation: model %s risk rule references unknown field %s", m.ID, rule.Field)
		}
		if !rule.Severity.IsValid() {
			return fmt.Errorf("model validation: model %s risk rule for %s has invalid severity", m.ID, rule.Field)
		}
	}
	return nil
}

// FieldByName looks up a declared field spec. Returns false for unknown names.
func (m *AssessmentModel) FieldByName(name string) (FieldSpec, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldOrder returns the position of a field in the model's declared order.
// Used as the stable tie-break when sorting risk factors of equal severity.
func (m *AssessmentModel) FieldOrder(name string) int {
	for i, f := range m.Fields {
		if f.Name == name {
			return i
		}
	}
	return len(m.Fields)
}

// Registry holds the catalog of assessment models, keyed by model ID.
type Registry struct {
	models map[string]*AssessmentModel
	order  []string
}

// NewRegistry builds a registry from the given descriptors, validating each.
func NewRegistry(models ...*AssessmentModel) (*Registry, error) {
	r := &Registry{models: make(map[string]*AssessmentModel, len(models))}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.models[m.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate model ID %s", m.ID)
		}
		r.models[m.ID] = m
		r.order = append(r.order, m.ID)
	}
	return r, nil
}

// Get returns the model for the given ID.
func (r *Registry) Get(id string) (*AssessmentModel, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", id, ErrNotFound)
	}
	return m, nil
}

// List returns all registered models in registration order.
func (r *Registry) List() []*AssessmentModel {
	out := make([]*AssessmentModel, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}
