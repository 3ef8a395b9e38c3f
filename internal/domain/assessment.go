package domain

import (
	"fmt"
	"time"
)

// CreditScoreResult is the credit scorer's verdict for one profile.
type CreditScoreResult struct {
	Score int
	// Band is the scorer's own label (low/medium/high risk), empty when absent.
	Band       string
	AssessedAt time.Time
}

// RiskLevel is the fraud service's categorical risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel accepts only the levels the fraud service documents.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), nil
	default:
		return "", fmt.Errorf("invalid risk level %q", s)
	}
}

// Recommendation is advisory text produced by the fraud service.
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendReject  Recommendation = "reject"
)

// ParseRecommendation accepts only the recommendations the fraud service documents.
func ParseRecommendation(s string) (Recommendation, error) {
	switch Recommendation(s) {
	case RecommendApprove, RecommendReview, RecommendReject:
		return Recommendation(s), nil
	default:
		return "", fmt.Errorf("invalid recommendation %q", s)
	}
}

// FraudAssessment is the fraud service's verdict for one transaction context.
type FraudAssessment struct {
	RiskScore      float64
	RiskLevel      RiskLevel
	RiskFactors    map[string]float64
	Recommendation Recommendation
	AssessedAt     time.Time
}
