package domain

import "fmt"

// Thresholds is the single table of business and display cut-offs.
// The approval rule and every display band read from here.
type Thresholds struct {
	// Approval requires CreditScore > MinApprovalCreditScore and
	// RiskScore < MaxApprovalRiskScore.
	MinApprovalCreditScore int
	MaxApprovalRiskScore   float64

	// Credit display bands: > CreditExcellentAbove is excellent,
	// > CreditFairAbove is fair, anything else poor.
	CreditExcellentAbove int
	CreditFairAbove      int

	// Risk severity bands: > RiskHighAbove is high, > RiskElevatedAbove is
	// elevated. These are display tiers and intentionally differ from
	// MaxApprovalRiskScore.
	RiskHighAbove     float64
	RiskElevatedAbove float64

	// Per-factor multiplier severity bands.
	FactorHighAbove     float64
	FactorElevatedAbove float64
}

// DefaultThresholds holds the production cut-offs.
var DefaultThresholds = Thresholds{
	MinApprovalCreditScore: 600,
	MaxApprovalRiskScore:   50,
	CreditExcellentAbove:   650,
	CreditFairAbove:        550,
	RiskHighAbove:          70,
	RiskElevatedAbove:      40,
	FactorHighAbove:        1.3,
	FactorElevatedAbove:    1.0,
}

// Approves is the approval predicate.
func (t Thresholds) Approves(creditScore int, riskScore float64) bool {
	ok, _ := t.Evaluate(creditScore, riskScore)
	return ok
}

// Evaluate applies the approval rule and lists every threshold that failed.
func (t Thresholds) Evaluate(creditScore int, riskScore float64) (bool, []string) {
	var failed []string
	if creditScore <= t.MinApprovalCreditScore {
		failed = append(failed, fmt.Sprintf("credit score %d does not exceed %d",
			creditScore, t.MinApprovalCreditScore))
	}
	if !(riskScore < t.MaxApprovalRiskScore) {
		failed = append(failed, fmt.Sprintf("risk score %.2f is not below %.0f",
			riskScore, t.MaxApprovalRiskScore))
	}
	return len(failed) == 0, failed
}

// CreditBand classifies a credit score for display.
type CreditBand string

const (
	CreditExcellent CreditBand = "excellent"
	CreditFair      CreditBand = "fair"
	CreditPoor      CreditBand = "poor"
)

// CreditBand returns the display band for score.
func (t Thresholds) CreditBand(score int) CreditBand {
	switch {
	case score > t.CreditExcellentAbove:
		return CreditExcellent
	case score > t.CreditFairAbove:
		return CreditFair
	default:
		return CreditPoor
	}
}

// Severity is a traffic-light classification for display.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityElevated Severity = "elevated"
	SeverityHigh     Severity = "high"
)

// RiskSeverity returns the display severity for a fraud risk score.
func (t Thresholds) RiskSeverity(riskScore float64) Severity {
	switch {
	case riskScore > t.RiskHighAbove:
		return SeverityHigh
	case riskScore > t.RiskElevatedAbove:
		return SeverityElevated
	default:
		return SeverityNormal
	}
}

// FactorSeverity returns the display severity for one risk factor multiplier.
func (t Thresholds) FactorSeverity(multiplier float64) Severity {
	switch {
	case multiplier > t.FactorHighAbove:
		return SeverityHigh
	case multiplier > t.FactorElevatedAbove:
		return SeverityElevated
	default:
		return SeverityNormal
	}
}
