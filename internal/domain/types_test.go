package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatus_IsValid(t *testing.T) {
	valid := []SessionStatus{
		StatusEditing, StatusValidating, StatusSubmitting,
		StatusResulted, StatusSaving, StatusSaved, StatusFailed,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "status %s should be valid", s)
	}

	assert.False(t, SessionStatus("DRAFT").IsValid())
	assert.False(t, SessionStatus("").IsValid())
}

func TestSessionStatus_HasResult(t *testing.T) {
	assert.True(t, StatusResulted.HasResult())
	assert.True(t, StatusSaving.HasResult())
	assert.True(t, StatusSaved.HasResult())

	assert.False(t, StatusEditing.HasResult())
	assert.False(t, StatusSubmitting.HasResult())
	assert.False(t, StatusFailed.HasResult())
}

func TestSessionStatus_Terminal(t *testing.T) {
	assert.True(t, StatusSaved.Terminal())
	assert.False(t, StatusResulted.Terminal())
	assert.False(t, StatusFailed.Terminal())
}

func TestSessionStatus_LogFields(t *testing.T) {
	fields := StatusResulted.LogFields()
	assert.Equal(t, "RESULTED", fields["status"])
	assert.Equal(t, true, fields["has_result"])
	assert.Equal(t, false, fields["terminal"])
}

func TestSeverityTier_Rank(t *testing.T) {
	assert.True(t, TierHigh.Rank() > TierModerate.Rank())
	assert.True(t, TierModerate.Rank() > TierLow.Rank())
	assert.True(t, TierCritical.Rank() > TierHigh.Rank())
	assert.Equal(t, -1, SeverityTier("bogus").Rank())
}

func TestSeverityTier_RequiresClinicalAttention(t *testing.T) {
	assert.False(t, TierLow.RequiresClinicalAttention())
	assert.False(t, TierModerate.RequiresClinicalAttention())
	assert.True(t, TierHigh.RequiresClinicalAttention())
	assert.True(t, TierCritical.RequiresClinicalAttention())
	// conservative for unknown tiers
	assert.True(t, SeverityTier("bogus").RequiresClinicalAttention())
}

func TestRiskSeverity_Ordering(t *testing.T) {
	assert.True(t, RiskHigh.Rank() > RiskModerate.Rank())
	assert.True(t, RiskModerate.Rank() > RiskLow.Rank())
	assert.True(t, RiskHigh.IsValid())
	assert.False(t, RiskSeverity("EXTREME").IsValid())
}

func TestFieldKind_IsValid(t *testing.T) {
	assert.True(t, FieldNumber.IsValid())
	assert.True(t, FieldEnum.IsValid())
	assert.True(t, FieldBoolean.IsValid())
	assert.False(t, FieldKind("DATE").IsValid())
}

func TestSchemeKind_IsValid(t *testing.T) {
	assert.True(t, SchemeBinary.IsValid())
	assert.True(t, SchemeMultiClass.IsValid())
	assert.False(t, SchemeKind("ORDINAL").IsValid())
}
