package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	registry, err := DefaultRegistry()
	require.NoError(t, err)

	models := registry.List()
	require.Len(t, models, 6)

	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{
		"diabetes", "heart-disease", "breast-cancer",
		"alzheimers", "kidney-disease", "liver-disease",
	}, ids)
}

func TestRegistry_Get(t *testing.T) {
	registry, err := DefaultRegistry()
	require.NoError(t, err)

	model, err := registry.Get("alzheimers")
	require.NoError(t, err)
	assert.Equal(t, SchemeMultiClass, model.Scheme.Kind)

	_, err = registry.Get("dermatology")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewRegistry(DiabetesModel(), DiabetesModel())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model ID")
}

func TestCatalogModels_Validate(t *testing.T) {
	for _, model := range []*AssessmentModel{
		DiabetesModel(), HeartDiseaseModel(), BreastCancerModel(),
		AlzheimersModel(), KidneyDiseaseModel(), LiverDiseaseModel(),
	} {
		assert.NoError(t, model.Validate(), "model %s", model.ID)
	}
}

func TestAlzheimersModel_SeverityOrdering(t *testing.T) {
	model := AlzheimersModel()
	classes := model.Scheme.OrderedClasses
	require.Len(t, classes, 4)

	// ordered by clinical severity, not alphabetically
	for i := 1; i < len(classes); i++ {
		assert.Greater(t, classes[i].SeverityRank, classes[i-1].SeverityRank)
	}
	assert.Equal(t, StageCognitivelyNormal, classes[0].Code)
	assert.Equal(t, StageAlzheimers, classes[3].Code)
}

func TestModelValidate_Failures(t *testing.T) {
	m := DiabetesModel()
	m.ID = ""
	assert.Error(t, m.Validate())

	m = DiabetesModel()
	m.RiskRules = append(m.RiskRules, RiskRule{Field: "platelets", Severity: RiskLow})
	assert.Error(t, m.Validate())

	m = DiabetesModel()
	m.Fields[0].Min = 200
	m.Fields[0].Max = 100
	assert.Error(t, m.Validate())

	m = AlzheimersModel()
	m.Scheme.OrderedClasses[1].Code = m.Scheme.OrderedClasses[0].Code
	assert.Error(t, m.Validate())
}

func TestScheme_ClassByCode(t *testing.T) {
	scheme := AlzheimersModel().Scheme

	class, ok := scheme.ClassByCode(StageLateMCI)
	require.True(t, ok)
	assert.Equal(t, TierHigh, class.Tier)

	_, ok = scheme.ClassByCode("SMC")
	assert.False(t, ok)
}

func TestRiskRule_Crossed(t *testing.T) {
	above := RiskRule{Field: "glucose", Op: RiskAbove, Threshold: 126}
	assert.True(t, above.Crossed(126.5))
	assert.False(t, above.Crossed(126))
	assert.False(t, above.Crossed(100))

	below := RiskRule{Field: "hemoglobin", Op: RiskBelow, Threshold: 11}
	assert.True(t, below.Crossed(10.9))
	assert.False(t, below.Crossed(11))
}
