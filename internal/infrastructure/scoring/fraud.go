package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/ports"
)

const fraudCheckPath = "/api/fraud-check"

// FraudClient calls the fraud-risk service.
type FraudClient struct {
	*Client
}

var _ ports.FraudAssessor = (*FraudClient)(nil)

// NewFraudClient binds a client to the fraud-risk service base URL.
func NewFraudClient(baseURL, apiKey string, timeout time.Duration) *FraudClient {
	return &FraudClient{Client: NewClient(domain.ServiceFraud, baseURL, apiKey, timeout)}
}

type fraudCheckRequest struct {
	Amount     json.Number `json:"amount"`
	Frequency  int         `json:"frequency"`
	NewAccount bool        `json:"newAccount"`
}

type riskAssessment struct {
	RiskScore      *float64           `json:"risk_score"`
	RiskLevel      *string            `json:"risk_level"`
	RiskFactors    map[string]float64 `json:"risk_factors"`
	Recommendation *string            `json:"recommendation"`
}

type fraudCheckResponse struct {
	RiskAssessment *riskAssessment `json:"risk_assessment"`
	Timestamp      string          `json:"timestamp"`
}

// AssessFraud scores the transaction context. Failures are never retried.
func (c *FraudClient) AssessFraud(ctx context.Context, request domain.LoanRequest) (domain.FraudAssessment, error) {
	payload := fraudCheckRequest{
		Amount:     json.Number(request.Amount.String()),
		Frequency:  request.Frequency,
		NewAccount: request.IsNewAccount,
	}

	raw, err := c.call(ctx, http.MethodPost, fraudCheckPath, payload)
	if err != nil {
		return domain.FraudAssessment{}, err
	}

	var resp fraudCheckResponse
	if err := c.decode(raw, &resp, true); err != nil {
		return domain.FraudAssessment{}, err
	}

	ra := resp.RiskAssessment
	if ra == nil {
		return domain.FraudAssessment{}, c.missing([]string{"risk_assessment"})
	}

	var missing []string
	if ra.RiskScore == nil {
		missing = append(missing, "risk_score")
	}
	if ra.RiskLevel == nil {
		missing = append(missing, "risk_level")
	}
	if ra.RiskFactors == nil {
		missing = append(missing, "risk_factors")
	}
	if ra.Recommendation == nil {
		missing = append(missing, "recommendation")
	}
	if len(missing) > 0 {
		return domain.FraudAssessment{}, c.missing(missing)
	}

	if *ra.RiskScore < 0 || *ra.RiskScore > 100 {
		return domain.FraudAssessment{}, c.shape(fmt.Sprintf("risk_score %v outside [0,100]", *ra.RiskScore))
	}
	level, err := domain.ParseRiskLevel(*ra.RiskLevel)
	if err != nil {
		return domain.FraudAssessment{}, c.shape(err.Error())
	}
	rec, err := domain.ParseRecommendation(*ra.Recommendation)
	if err != nil {
		return domain.FraudAssessment{}, c.shape(err.Error())
	}
	assessedAt, err := parseTimestamp(resp.Timestamp)
	if err != nil {
		return domain.FraudAssessment{}, c.shape(err.Error())
	}

	return domain.FraudAssessment{
		RiskScore:      *ra.RiskScore,
		RiskLevel:      level,
		RiskFactors:    ra.RiskFactors,
		Recommendation: rec,
		AssessedAt:     assessedAt,
	}, nil
}
