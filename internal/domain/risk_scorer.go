package domain

// Risk levels produced by ScoreRisk
const (
	RiskLevelLow    = "LOW"
	RiskLevelMedium = "MEDIUM"
	RiskLevelHigh   = "HIGH"
)

// Risk flags. Each corresponds to exactly one scoring rule.
const (
	FlagHighAmount      = "HIGH_AMOUNT"
	FlagFrequentClaimer = "FREQUENT_CLAIMER"
	FlagEarlyClaim      = "EARLY_CLAIM"
	FlagIncompleteDocs  = "INCOMPLETE_DOCS"
	FlagPatternMatch    = "PATTERN_MATCH"
)

// Scoring thresholds and weights
const (
	highAmountThreshold   = 8_000_000
	highAmountPoints      = 3
	frequentClaimsCutoff  = 3
	frequentClaimerPoints = 2
	earlyClaimDays        = 30
	earlyClaimPoints      = 4
	incompleteDocsPoints  = 2
	patternMatchPoints    = 5

	riskLevelHighFloor   = 7
	riskLevelMediumFloor = 4
)

// RiskInput carries the claim facts the scorer evaluates.
// DaysSincePurchase of nil means unknown; it defaults to 365 and never
// triggers the early-claim rule.
type RiskInput struct {
	Amount              float64
	PreviousClaims      int
	DaysSincePurchase   *int
	HasAllDocuments     bool
	MatchesFraudPattern bool
}

// RiskAssessment is the scorer output: an additive score, the derived
// level, and one flag per triggered rule.
type RiskAssessment struct {
	Score int
	Level string
	Flags []string
}

// ScoreRisk computes the additive risk score for a claim. All rules are
// evaluated independently with no short-circuit; the function is pure and
// reproducible bit-for-bit for identical inputs.
func ScoreRisk(input RiskInput) RiskAssessment {
	assessment := RiskAssessment{Flags: []string{}}

	if input.Amount > highAmountThreshold {
		assessment.Score += highAmountPoints
		assessment.Flags = append(assessment.Flags, FlagHighAmount)
	}

	if input.PreviousClaims > frequentClaimsCutoff {
		assessment.Score += frequentClaimerPoints
		assessment.Flags = append(assessment.Flags, FlagFrequentClaimer)
	}

	days := 365
	if input.DaysSincePurchase != nil {
		days = *input.DaysSincePurchase
	}
	if days < earlyClaimDays {
		assessment.Score += earlyClaimPoints
		assessment.Flags = append(assessment.Flags, FlagEarlyClaim)
	}

	if !input.HasAllDocuments {
		assessment.Score += incompleteDocsPoints
		assessment.Flags = append(assessment.Flags, FlagIncompleteDocs)
	}

	if input.MatchesFraudPattern {
		assessment.Score += patternMatchPoints
		assessment.Flags = append(assessment.Flags, FlagPatternMatch)
	}

	switch {
	case assessment.Score >= riskLevelHighFloor:
		assessment.Level = RiskLevelHigh
	case assessment.Score >= riskLevelMediumFloor:
		assessment.Level = RiskLevelMedium
	default:
		assessment.Level = RiskLevelLow
	}

	// A claim over the high-amount threshold is never LOW, even when no
	// other rule fired: the amount alone warrants adjuster attention.
	if assessment.Level == RiskLevelLow && input.Amount > highAmountThreshold {
		assessment.Level = RiskLevelMedium
	}

	return assessment
}
