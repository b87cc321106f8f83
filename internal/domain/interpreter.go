package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// probabilitySumTolerance is the accepted deviation of a multi-class
// probability distribution from 1.0 before renormalization kicks in.
const probabilitySumTolerance = 0.01

// maxRenormalizableDeviation bounds how far a distribution may drift before
// it is rejected outright instead of renormalized.
const maxRenormalizableDeviation = 0.25

// RiskFactor is one submitted value that crossed a clinically defined
// threshold, surfaced with a severity grade and a human-readable explanation.
type RiskFactor struct {
	Field       string       `json:"field"`
	Value       float64      `json:"value"`
	Severity    RiskSeverity `json:"severity"`
	Description string       `json:"description"`
}

// Interpretation is the normalized, immutable reading of a raw prediction
// against a model's classification scheme. Once produced it is never
// mutated; overrides are recorded alongside it, not inside it.
type Interpretation struct {
	PredictedClass    string             `json:"predicted_class"`
	PredictedLabel    string             `json:"predicted_label"`
	Confidence        float64            `json:"confidence"`
	ConfidenceDisplay string             `json:"confidence_display"`
	SeverityTier      SeverityTier       `json:"severity_tier"`
	SeverityRank      int                `json:"severity_rank"`
	Probabilities     map[string]float64 `json:"probabilities,omitempty"`
	RiskFactors       []RiskFactor       `json:"risk_factors,omitempty"`
	Warnings          []string           `json:"warnings,omitempty"`
	InterpretedAt     time.Time          `json:"interpreted_at"`
}

// LogFields returns structured logging fields for audit trails.
func (i *Interpretation) LogFields() map[string]any {
	return map[string]any{
		"predicted_class": i.PredictedClass,
		"predicted_label": i.PredictedLabel,
		"confidence":      i.Confidence,
		"severity_tier":   i.SeverityTier.String(),
		"risk_factors":    len(i.RiskFactors),
		"warnings":        len(i.Warnings),
	}
}

// Interpret converts a raw prediction payload into a normalized
// Interpretation under the model's classification scheme. typedInputs is the
// validated input snapshot used for risk-factor synthesis.
//
// A payload that violates the scheme (unknown class, confidence outside
// [0,1], negative or unrecoverably skewed probabilities) is rejected with a
// MALFORMED_PREDICTION error; the caller must not render a classification it
// could not validate.
func Interpret(model *AssessmentModel, raw *RawPrediction, typedInputs map[string]any) (*Interpretation, error) {
	if raw == nil {
		return nil, MalformedPredictionError("", "empty prediction payload")
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return nil, MalformedPredictionError("",
			fmt.Sprintf("confidence %g outside [0,1]", raw.Confidence))
	}

	out := &Interpretation{
		PredictedClass:    raw.PredictedClass,
		Confidence:        raw.Confidence,
		ConfidenceDisplay: FormatConfidence(raw.Confidence),
		InterpretedAt:     time.Now().UTC(),
	}

	switch model.Scheme.Kind {
	case SchemeBinary:
		switch raw.PredictedClass {
		case ClassPositive:
			out.PredictedLabel = model.Scheme.PositiveLabel
			out.SeverityTier = TierHigh
			out.SeverityRank = 1
		case ClassNegative:
			out.PredictedLabel = model.Scheme.NegativeLabel
			out.SeverityTier = TierLow
			out.SeverityRank = 0
		default:
			return nil, MalformedPredictionError("",
				fmt.Sprintf("binary scheme cannot interpret class %q", raw.PredictedClass))
		}

	case SchemeMultiClass:
		class, ok := model.Scheme.ClassByCode(raw.PredictedClass)
		if !ok {
			return nil, MalformedPredictionError("",
				fmt.Sprintf("class %q is not declared by model %s", raw.PredictedClass, model.ID))
		}
		out.PredictedLabel = class.Label
		out.SeverityTier = class.Tier
		out.SeverityRank = class.SeverityRank

		probs, warning, err := normalizeProbabilities(model, raw.Probabilities)
		if err != nil {
			return nil, err
		}
		out.Probabilities = probs
		if warning != "" {
			out.Warnings = append(out.Warnings, warning)
		}

	default:
		return nil, fmt.Errorf("model %s: %w", model.ID, ErrInvalidSchemeKind)
	}

	out.RiskFactors = SynthesizeRiskFactors(model, typedInputs)
	return out, nil
}

// normalizeProbabilities validates a multi-class probability distribution
// against the declared classes. Missing classes are filled with 0.0 rather
// than erroring; undeclared classes and out-of-range entries are rejected.
// A sum deviating from 1.0 by more than the tolerance is renormalized and
// flagged with a MALFORMED_PREDICTION warning; beyond the renormalizable
// bound the payload is rejected.
func normalizeProbabilities(model *AssessmentModel, probs map[string]float64) (map[string]float64, string, error) {
	for code := range probs {
		if _, ok := model.Scheme.ClassByCode(code); !ok {
			return nil, "", MalformedPredictionError("",
				fmt.Sprintf("probability entry for undeclared class %q", code))
		}
	}

	filled := make(map[string]float64, len(model.Scheme.OrderedClasses))
	sum := 0.0
	for _, class := range model.Scheme.OrderedClasses {
		p := probs[class.Code]
		if p < 0 || p > 1 {
			return nil, "", MalformedPredictionError("",
				fmt.Sprintf("probability %g for class %s outside [0,1]", p, class.Code))
		}
		filled[class.Code] = p
		sum += p
	}

	deviation := math.Abs(sum - 1.0)
	if deviation <= probabilitySumTolerance {
		return filled, "", nil
	}
	if deviation > maxRenormalizableDeviation || sum <= 0 {
		return nil, "", MalformedPredictionError("",
			fmt.Sprintf("probability mass sums to %.3f, beyond recoverable deviation", sum))
	}

	for code := range filled {
		filled[code] /= sum
	}
	warning := fmt.Sprintf("%s: probability mass summed to %.3f, renormalized", ErrCodeMalformedPrediction, sum)
	return filled, warning, nil
}

// SynthesizeRiskFactors compares every submitted numeric value against the
// model's threshold rules and returns the crossed ones, ordered by
// descending severity with the model's declared field order as the stable
// tie-break.
func SynthesizeRiskFactors(model *AssessmentModel, typedInputs map[string]any) []RiskFactor {
	var factors []RiskFactor
	for _, rule := range model.RiskRules {
		raw, ok := typedInputs[rule.Field]
		if !ok {
			continue
		}
		value, ok := raw.(float64)
		if !ok {
			continue
		}
		if rule.Crossed(value) {
			factors = append(factors, RiskFactor{
				Field:       rule.Field,
				Value:       value,
				Severity:    rule.Severity,
				Description: rule.Description,
			})
		}
	}

	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Severity.Rank() != factors[j].Severity.Rank() {
			return factors[i].Severity.Rank() > factors[j].Severity.Rank()
		}
		return model.FieldOrder(factors[i].Field) < model.FieldOrder(factors[j].Field)
	})
	return factors
}

// FormatConfidence renders a confidence value as a percentage with one
// decimal place, clamping to [0,1] first. Out-of-range values are rejected
// before interpretation; the clamp here only guards float drift.
func FormatConfidence(confidence float64) string {
	c := math.Min(math.Max(confidence, 0), 1)
	return fmt.Sprintf("%.1f%%", c*100)
}
