package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestScoreRisk_Rules(t *testing.T) {
	tests := []struct {
		name          string
		input         RiskInput
		expectedScore int
		expectedLevel string
		expectedFlags []string
	}{
		{
			name: "clean claim scores zero",
			input: RiskInput{
				Amount:            100_000,
				PreviousClaims:    0,
				DaysSincePurchase: intPtr(400),
				HasAllDocuments:   true,
			},
			expectedScore: 0,
			expectedLevel: RiskLevelLow,
			expectedFlags: []string{},
		},
		{
			name: "high amount alone floors the level at medium",
			input: RiskInput{
				Amount:            9_000_000,
				PreviousClaims:    1,
				DaysSincePurchase: intPtr(180),
				HasAllDocuments:   true,
			},
			expectedScore: 3,
			expectedLevel: RiskLevelMedium,
			expectedFlags: []string{FlagHighAmount},
		},
		{
			name: "early claim with missing docs",
			input: RiskInput{
				Amount:            50_000,
				DaysSincePurchase: intPtr(10),
				HasAllDocuments:   false,
			},
			expectedScore: 6,
			expectedLevel: RiskLevelMedium,
			expectedFlags: []string{FlagEarlyClaim, FlagIncompleteDocs},
		},
		{
			name: "everything triggers",
			input: RiskInput{
				Amount:              10_000_000,
				PreviousClaims:      5,
				DaysSincePurchase:   intPtr(5),
				HasAllDocuments:     false,
				MatchesFraudPattern: true,
			},
			expectedScore: 16,
			expectedLevel: RiskLevelHigh,
			expectedFlags: []string{FlagHighAmount, FlagFrequentClaimer, FlagEarlyClaim, FlagIncompleteDocs, FlagPatternMatch},
		},
		{
			name: "unspecified purchase date defaults to 365 and never flags early",
			input: RiskInput{
				Amount:          1_000,
				HasAllDocuments: true,
			},
			expectedScore: 0,
			expectedLevel: RiskLevelLow,
			expectedFlags: []string{},
		},
		{
			name: "boundary: exactly 8,000,000 is not high amount",
			input: RiskInput{
				Amount:            8_000_000,
				DaysSincePurchase: intPtr(100),
				HasAllDocuments:   true,
			},
			expectedScore: 0,
			expectedLevel: RiskLevelLow,
			expectedFlags: []string{},
		},
		{
			name: "boundary: exactly 30 days is not early",
			input: RiskInput{
				Amount:            1_000,
				DaysSincePurchase: intPtr(30),
				HasAllDocuments:   true,
			},
			expectedScore: 0,
			expectedLevel: RiskLevelLow,
			expectedFlags: []string{},
		},
		{
			name: "fraud pattern plus missing docs reaches high",
			input: RiskInput{
				Amount:              1_000,
				DaysSincePurchase:   intPtr(90),
				HasAllDocuments:     false,
				MatchesFraudPattern: true,
			},
			expectedScore: 7,
			expectedLevel: RiskLevelHigh,
			expectedFlags: []string{FlagIncompleteDocs, FlagPatternMatch},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assessment := ScoreRisk(tc.input)
			assert.Equal(t, tc.expectedScore, assessment.Score)
			assert.Equal(t, tc.expectedLevel, assessment.Level)
			assert.Equal(t, tc.expectedFlags, assessment.Flags)
		})
	}
}

// Large claims on young policies must score above LOW and carry the
// high-amount flag, matching the filing scenario from the claims team.
func TestScoreRisk_LargeClaimScenario(t *testing.T) {
	assessment := ScoreRisk(RiskInput{
		Amount:            9_000_000,
		PreviousClaims:    1,
		DaysSincePurchase: intPtr(180),
		HasAllDocuments:   false,
	})

	assert.GreaterOrEqual(t, assessment.Score, 3)
	assert.Contains(t, assessment.Flags, FlagHighAmount)
	assert.NotEqual(t, RiskLevelLow, assessment.Level)
}

func TestScoreRisk_Deterministic(t *testing.T) {
	input := RiskInput{
		Amount:              9_500_000,
		PreviousClaims:      4,
		DaysSincePurchase:   intPtr(12),
		HasAllDocuments:     false,
		MatchesFraudPattern: true,
	}

	first := ScoreRisk(input)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ScoreRisk(input))
	}
}
