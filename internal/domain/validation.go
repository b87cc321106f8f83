package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationResult aggregates field-level validation of a full input set.
// An assessment cannot be submitted while FieldErrors is non-empty; this is
// the primary backpressure that keeps invalid requests off the network.
type ValidationResult struct {
	IsValid     bool              `json:"is_valid"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`

	// Typed holds the coerced values for every field that validated,
	// keyed by field name. Absent optional fields are omitted.
	Typed map[string]any `json:"-"`
}

// ValidateField validates a single raw input value against its field spec
// and coerces it to the field's typed representation: float64 for numeric
// fields, string for enums, bool for booleans.
//
// Pure: no side effects, no dependencies beyond the field spec itself.
func ValidateField(spec FieldSpec, raw any) (any, *FieldError) {
	if isEmpty(raw) {
		if spec.Required {
			return nil, NewFieldError(spec.Name, "value is required", raw)
		}
		return nil, nil
	}

	switch spec.Kind {
	case FieldNumber:
		v, ok := coerceNumber(raw)
		if !ok {
			return nil, NewFieldError(spec.Name, "value must be numeric", raw)
		}
		if v < spec.Min || v > spec.Max {
			return nil, NewFieldError(spec.Name,
				fmt.Sprintf("out of range: must be between %g and %g", spec.Min, spec.Max), raw)
		}
		return v, nil

	case FieldEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, NewFieldError(spec.Name, "value must be one of the allowed options", raw)
		}
		for _, allowed := range spec.AllowedValues {
			if s == allowed {
				return s, nil
			}
		}
		return nil, NewFieldError(spec.Name,
			fmt.Sprintf("value must be one of: %s", strings.Join(spec.AllowedValues, ", ")), raw)

	case FieldBoolean:
		b, ok := coerceBool(raw)
		if !ok {
			return nil, NewFieldError(spec.Name, "value must be a boolean", raw)
		}
		return b, nil

	default:
		return nil, NewFieldError(spec.Name, "unsupported field kind", raw)
	}
}

// ValidateAll validates every declared field of the model against the given
// input values in the model's declared field order. Unknown input keys are
// rejected so that typos never silently drop clinical data.
func ValidateAll(model *AssessmentModel, values map[string]any) ValidationResult {
	result := ValidationResult{
		IsValid:     true,
		FieldErrors: make(map[string]string),
		Typed:       make(map[string]any),
	}

	for _, spec := range model.Fields {
		typed, ferr := ValidateField(spec, values[spec.Name])
		if ferr != nil {
			result.FieldErrors[ferr.Field] = ferr.Reason
			continue
		}
		if typed != nil {
			result.Typed[spec.Name] = typed
		}
	}

	for name := range values {
		if _, known := model.FieldByName(name); !known {
			result.FieldErrors[name] = "unknown field"
		}
	}

	result.IsValid = len(result.FieldErrors) == 0
	if result.IsValid {
		result.FieldErrors = nil
	} else {
		result.Typed = nil
	}
	return result
}

func isEmpty(raw any) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// coerceNumber accepts the numeric encodings produced by JSON decoding and
// form input.
func coerceNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}
