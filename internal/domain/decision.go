package domain

import "time"

// DecisionStatus enumerates underwriting outcomes.
type DecisionStatus string

const (
	StatusApproved DecisionStatus = "approved"
	StatusRejected DecisionStatus = "rejected"
	StatusError    DecisionStatus = "error"
)

// Decision is the outcome of one underwriting run.
// CreditScore and RiskScore are nil whenever Status is StatusError.
type Decision struct {
	ID          string
	Status      DecisionStatus
	CreditScore *int
	RiskScore   *float64
	Reason      string
	DecidedAt   time.Time

	// Audit trail shown alongside the decision; never consulted by the rule.
	RiskLevel      RiskLevel
	Recommendation Recommendation
	RiskFactors    map[string]float64
}

// Approved reports whether the loan was approved.
func (d Decision) Approved() bool {
	return d.Status == StatusApproved
}
