package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret_BinaryPositive(t *testing.T) {
	model := DiabetesModel()
	raw := &RawPrediction{PredictedClass: ClassPositive, Confidence: 0.87}

	interp, err := Interpret(model, raw, nil)
	require.NoError(t, err)

	assert.Equal(t, TierHigh, interp.SeverityTier)
	assert.Equal(t, "Diabetes risk detected", interp.PredictedLabel)
	assert.Equal(t, "87.0%", interp.ConfidenceDisplay)
	assert.Empty(t, interp.Warnings)
}

func TestInterpret_BinaryNegative(t *testing.T) {
	model := BreastCancerModel()
	raw := &RawPrediction{PredictedClass: ClassNegative, Confidence: 0.62}

	interp, err := Interpret(model, raw, nil)
	require.NoError(t, err)

	assert.Equal(t, TierLow, interp.SeverityTier)
	assert.Equal(t, "Benign", interp.PredictedLabel)
	assert.Equal(t, "62.0%", interp.ConfidenceDisplay)
}

func TestInterpret_BinaryUnknownClass(t *testing.T) {
	model := DiabetesModel()
	raw := &RawPrediction{PredictedClass: "inconclusive", Confidence: 0.5}

	_, err := Interpret(model, raw, nil)
	require.Error(t, err)
	assessErr, ok := err.(*AssessmentError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeMalformedPrediction, assessErr.Code)
}

func TestInterpret_ConfidenceOutOfRange(t *testing.T) {
	model := DiabetesModel()

	for _, confidence := range []float64{-0.1, 1.2} {
		raw := &RawPrediction{PredictedClass: ClassPositive, Confidence: confidence}
		_, err := Interpret(model, raw, nil)
		require.Error(t, err)
		assessErr, ok := err.(*AssessmentError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeMalformedPrediction, assessErr.Code)
	}
}

func TestInterpret_MultiClass(t *testing.T) {
	model := AlzheimersModel()
	raw := &RawPrediction{
		PredictedClass: StageEarlyMCI,
		Confidence:     0.6,
		Probabilities: map[string]float64{
			StageCognitivelyNormal: 0.1,
			StageEarlyMCI:          0.6,
			StageLateMCI:           0.2,
			StageAlzheimers:        0.1,
		},
	}

	interp, err := Interpret(model, raw, nil)
	require.NoError(t, err)

	assert.Equal(t, "Early Mild Cognitive Impairment", interp.PredictedLabel)
	assert.Equal(t, TierModerate, interp.SeverityTier)
	assert.Equal(t, 1, interp.SeverityRank)
	assert.Empty(t, interp.Warnings)

	sum := 0.0
	for _, p := range interp.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestInterpret_MultiClassMissingClassesFilledAsZero(t *testing.T) {
	model := AlzheimersModel()
	raw := &RawPrediction{
		PredictedClass: StageAlzheimers,
		Confidence:     0.995,
		Probabilities: map[string]float64{
			StageAlzheimers: 1.0,
		},
	}

	interp, err := Interpret(model, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, interp.Probabilities[StageCognitivelyNormal])
	assert.Equal(t, 0.0, interp.Probabilities[StageEarlyMCI])
	assert.Equal(t, 1.0, interp.Probabilities[StageAlzheimers])
	assert.Empty(t, interp.Warnings)
}

func TestInterpret_MultiClassSkewedSumFlagged(t *testing.T) {
	model := AlzheimersModel()
	raw := &RawPrediction{
		PredictedClass: StageEarlyMCI,
		Confidence:     0.6,
		Probabilities: map[string]float64{
			StageCognitivelyNormal: 0.1,
			StageEarlyMCI:          0.5,
			StageLateMCI:           0.1,
			StageAlzheimers:        0.1,
		}, // sums to 0.80
	}

	interp, err := Interpret(model, raw, nil)
	require.NoError(t, err)

	require.Len(t, interp.Warnings, 1)
	assert.Contains(t, interp.Warnings[0], ErrCodeMalformedPrediction)

	sum := 0.0
	for _, p := range interp.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 0.001)
	// proportions preserved by renormalization
	assert.InDelta(t, 0.625, interp.Probabilities[StageEarlyMCI], 0.001)
}

func TestInterpret_MultiClassUnrecoverableSum(t *testing.T) {
	model := AlzheimersModel()
	raw := &RawPrediction{
		PredictedClass: StageEarlyMCI,
		Confidence:     0.6,
		Probabilities: map[string]float64{
			StageEarlyMCI: 0.3,
		},
	}

	_, err := Interpret(model, raw, nil)
	require.Error(t, err)
	assessErr, ok := err.(*AssessmentError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeMalformedPrediction, assessErr.Code)
}

func TestInterpret_MultiClassUndeclaredClassRejected(t *testing.T) {
	model := AlzheimersModel()
	raw := &RawPrediction{
		PredictedClass: StageEarlyMCI,
		Confidence:     0.6,
		Probabilities: map[string]float64{
			StageEarlyMCI: 0.6,
			"SMC":         0.4,
		},
	}

	_, err := Interpret(model, raw, nil)
	require.Error(t, err)
}

func TestSynthesizeRiskFactors_OrderAndThresholds(t *testing.T) {
	model := DiabetesModel()
	inputs := map[string]any{
		"age":     46.0,  // > 45, low
		"bmi":     31.2,  // > 30, moderate
		"hba1c":   7.1,   // > 6.5, high
		"glucose": 180.0, // > 126, high
	}

	factors := SynthesizeRiskFactors(model, inputs)
	require.Len(t, factors, 4)

	// descending severity; hba1c before glucose by declared field order
	assert.Equal(t, "hba1c", factors[0].Field)
	assert.Equal(t, RiskHigh, factors[0].Severity)
	assert.Equal(t, "glucose", factors[1].Field)
	assert.Equal(t, RiskHigh, factors[1].Severity)
	assert.Equal(t, "bmi", factors[2].Field)
	assert.Equal(t, RiskModerate, factors[2].Severity)
	assert.Equal(t, "age", factors[3].Field)
	assert.Equal(t, RiskLow, factors[3].Severity)
}

func TestSynthesizeRiskFactors_BelowThresholdRule(t *testing.T) {
	model := KidneyDiseaseModel()
	inputs := map[string]any{
		"hemoglobin": 9.5, // < 11, moderate
	}

	factors := SynthesizeRiskFactors(model, inputs)
	require.Len(t, factors, 1)
	assert.Equal(t, "hemoglobin", factors[0].Field)
	assert.Equal(t, RiskModerate, factors[0].Severity)
}

func TestSynthesizeRiskFactors_NoneCrossed(t *testing.T) {
	model := DiabetesModel()
	inputs := map[string]any{
		"age":     30.0,
		"bmi":     22.0,
		"hba1c":   5.0,
		"glucose": 90.0,
	}

	factors := SynthesizeRiskFactors(model, inputs)
	assert.Empty(t, factors)
}

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "87.0%", FormatConfidence(0.87))
	assert.Equal(t, "91.0%", FormatConfidence(0.91))
	assert.Equal(t, "99.9%", FormatConfidence(0.9994))
	assert.Equal(t, "0.0%", FormatConfidence(0))
	assert.Equal(t, "100.0%", FormatConfidence(1))
	// clamp guards float drift only; out-of-range payloads are rejected earlier
	assert.Equal(t, "100.0%", FormatConfidence(1.0000001))
}
