package httpapi

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/usecase"
)

type errorResponse struct {
	Error  string             `json:"error"`
	Fields domain.FieldErrors `json:"fields,omitempty"`
}

type validationResponse struct {
	Valid  bool               `json:"valid"`
	Fields domain.FieldErrors `json:"fields,omitempty"`
}

type riskFactorResponse struct {
	Name       string          `json:"name"`
	Multiplier float64         `json:"multiplier"`
	Severity   domain.Severity `json:"severity"`
}

type decisionResponse struct {
	ID             string                `json:"id"`
	Status         domain.DecisionStatus `json:"status"`
	Approved       bool                  `json:"approved"`
	CreditScore    *int                  `json:"creditScore"`
	CreditBand     domain.CreditBand     `json:"creditBand,omitempty"`
	RiskScore      *float64              `json:"riskScore"`
	RiskSeverity   domain.Severity       `json:"riskSeverity,omitempty"`
	RiskLevel      domain.RiskLevel      `json:"riskLevel,omitempty"`
	Recommendation domain.Recommendation `json:"recommendation,omitempty"`
	RiskFactors    []riskFactorResponse  `json:"riskFactors,omitempty"`
	Reason         string                `json:"reason,omitempty"`
	DecidedAt      time.Time             `json:"decidedAt"`
}

func newDecisionResponse(d domain.Decision, th domain.Thresholds) decisionResponse {
	resp := decisionResponse{
		ID:             d.ID,
		Status:         d.Status,
		Approved:       d.Approved(),
		CreditScore:    d.CreditScore,
		RiskScore:      d.RiskScore,
		RiskLevel:      d.RiskLevel,
		Recommendation: d.Recommendation,
		Reason:         d.Reason,
		DecidedAt:      d.DecidedAt,
	}
	if d.CreditScore != nil {
		resp.CreditBand = th.CreditBand(*d.CreditScore)
	}
	if d.RiskScore != nil {
		resp.RiskSeverity = th.RiskSeverity(*d.RiskScore)
	}

	resp.RiskFactors = newRiskFactors(d.RiskFactors, th)
	return resp
}

func newRiskFactors(factors map[string]float64, th domain.Thresholds) []riskFactorResponse {
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]riskFactorResponse, 0, len(names))
	for _, name := range names {
		m := factors[name]
		out = append(out, riskFactorResponse{Name: name, Multiplier: m, Severity: th.FactorSeverity(m)})
	}
	return out
}

type creditCheckResponse struct {
	CreditScore int               `json:"creditScore"`
	CreditBand  domain.CreditBand `json:"creditBand"`
	// ServiceBand is the label the credit service attached, when any.
	ServiceBand string     `json:"serviceBand,omitempty"`
	AssessedAt  *time.Time `json:"assessedAt,omitempty"`
}

func newCreditCheckResponse(res domain.CreditScoreResult, th domain.Thresholds) creditCheckResponse {
	return creditCheckResponse{
		CreditScore: res.Score,
		CreditBand:  th.CreditBand(res.Score),
		ServiceBand: res.Band,
		AssessedAt:  optionalTime(res.AssessedAt),
	}
}

type fraudCheckResponse struct {
	RiskScore      float64               `json:"riskScore"`
	RiskSeverity   domain.Severity       `json:"riskSeverity"`
	RiskLevel      domain.RiskLevel      `json:"riskLevel"`
	Recommendation domain.Recommendation `json:"recommendation"`
	RiskFactors    []riskFactorResponse  `json:"riskFactors"`
	AssessedAt     *time.Time            `json:"assessedAt,omitempty"`
}

func newFraudCheckResponse(res domain.FraudAssessment, th domain.Thresholds) fraudCheckResponse {
	return fraudCheckResponse{
		RiskScore:      res.RiskScore,
		RiskSeverity:   th.RiskSeverity(res.RiskScore),
		RiskLevel:      res.RiskLevel,
		Recommendation: res.Recommendation,
		RiskFactors:    newRiskFactors(res.RiskFactors, th),
		AssessedAt:     optionalTime(res.AssessedAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type monthlyResponse struct {
	Approvals     []float64 `json:"loanApprovals"`
	Repayments    []float64 `json:"repayments"`
	Defaults      []float64 `json:"defaults"`
	AvgLoanAmount []float64 `json:"avgLoanAmount"`
}

type statsResponse struct {
	TotalActiveLoans   int             `json:"totalActiveLoans"`
	PendingApprovals   int             `json:"pendingApprovals"`
	TotalDisbursed     json.Number     `json:"totalDisbursed"`
	TotalRepaid        json.Number     `json:"totalRepaid"`
	DefaultRatePercent float64         `json:"defaultRate"`
	AvgCreditScore     float64         `json:"avgCreditScore"`
	Monthly            monthlyResponse `json:"monthlyData"`
	FetchedAt          time.Time       `json:"fetchedAt"`
	Stale              bool            `json:"stale"`
}

func newStatsResponse(snap *usecase.StatsSnapshot, stale bool) statsResponse {
	st := snap.Stats
	return statsResponse{
		TotalActiveLoans:   st.TotalActiveLoans,
		PendingApprovals:   st.PendingApprovals,
		TotalDisbursed:     money(st.TotalDisbursed),
		TotalRepaid:        money(st.TotalRepaid),
		DefaultRatePercent: st.DefaultRatePercent,
		AvgCreditScore:     st.AvgCreditScore,
		Monthly: monthlyResponse{
			Approvals:     st.Monthly.Approvals,
			Repayments:    st.Monthly.Repayments,
			Defaults:      st.Monthly.Defaults,
			AvgLoanAmount: st.Monthly.AvgLoanAmount,
		},
		FetchedAt: snap.FetchedAt,
		Stale:     stale,
	}
}

// money emits an exact decimal as a bare JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type dashboardStateResponse struct {
	Active bool `json:"active"`
}
