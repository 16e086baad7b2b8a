package domain

import (
	"log"

	"github.com/coverline/backend/pkg/expression"
)

// Decision is the underwriter outcome for a policy
type Decision string

const (
	// DecisionApprove routes the policy into the human approval pipeline
	DecisionApprove Decision = "APPROVE"
	// DecisionDeny terminates the policy at underwriter review
	DecisionDeny Decision = "DENY"
)

// UnderwriterInput carries the policy facts the evaluator decides on
type UnderwriterInput struct {
	PremiumAmount float64
	RiskScore     int
}

// UnderwriterRule is one row of the decision table. Rules are evaluated in
// order; the first matching rule wins. A rule matches when the premium is
// within [MinPremium, MaxPremium] and, if Criteria is set, the expression
// evaluates to true against {premium, risk_score}.
type UnderwriterRule struct {
	Name       string
	MinPremium float64
	MaxPremium float64 // inclusive; <= 0 means unbounded
	Criteria   string  // optional expr over premium / risk_score
	Decision   Decision
}

// Underwriter evaluates policies against a configured rule table.
// Evaluation is deterministic: same table, same input, same decision.
type Underwriter struct {
	rules  []UnderwriterRule
	engine *expression.Engine
}

// DefaultUnderwriterRules returns the standard decision table:
// premiums at or below 50,000 auto-approve, premiums of 1,000,000 and above
// are denied outright, and the band between is resolved by risk score.
func DefaultUnderwriterRules() []UnderwriterRule {
	return []UnderwriterRule{
		{
			Name:       "auto-approve small premium",
			MaxPremium: 50_000,
			Decision:   DecisionApprove,
		},
		{
			Name:       "deny high-value premium",
			MinPremium: 1_000_000,
			Decision:   DecisionDeny,
		},
		{
			Name:       "approve mid-band low risk",
			MinPremium: 50_000,
			MaxPremium: 1_000_000,
			Criteria:   "risk_score < 4",
			Decision:   DecisionApprove,
		},
		{
			Name:       "deny mid-band elevated risk",
			MinPremium: 50_000,
			MaxPremium: 1_000_000,
			Decision:   DecisionDeny,
		},
	}
}

// NewUnderwriter creates an underwriter over the given rule table.
// Pass DefaultUnderwriterRules() for the standard configuration.
func NewUnderwriter(rules []UnderwriterRule) *Underwriter {
	return &Underwriter{
		rules:  rules,
		engine: expression.NewEngine(),
	}
}

// Evaluate resolves the policy to APPROVE or DENY. No rule matching is a
// conservative DENY. The caller (policy service) owns the resulting state
// transition; this function has no side effects.
func (u *Underwriter) Evaluate(input UnderwriterInput) Decision {
	env := map[string]interface{}{
		"premium":    input.PremiumAmount,
		"risk_score": input.RiskScore,
	}

	for _, rule := range u.rules {
		if input.PremiumAmount < rule.MinPremium {
			continue
		}
		if rule.MaxPremium > 0 && input.PremiumAmount > rule.MaxPremium {
			continue
		}
		if rule.Criteria != "" {
			matched, err := u.engine.EvaluateBool(rule.Criteria, env)
			if err != nil {
				log.Printf("⚠️ Underwriter rule %q: criteria evaluation failed: %v", rule.Name, err)
				continue
			}
			if !matched {
				continue
			}
		}
		return rule.Decision
	}

	return DecisionDeny
}
