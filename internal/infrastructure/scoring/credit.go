package scoring

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/ports"
)

const creditScorePath = "/api/credit-score"

// CreditClient calls the credit-scoring service.
type CreditClient struct {
	*Client
}

var _ ports.CreditScorer = (*CreditClient)(nil)

// NewCreditClient binds a client to the credit-scoring service base URL.
func NewCreditClient(baseURL, apiKey string, timeout time.Duration) *CreditClient {
	return &CreditClient{Client: NewClient(domain.ServiceCredit, baseURL, apiKey, timeout)}
}

type phoneData struct {
	CallFrequency   float64 `json:"callFrequency"`
	AvgCallDuration float64 `json:"avgCallDuration"`
	ContactsCount   float64 `json:"contactsCount"`
}

type transactionData struct {
	AvgMonthlyTransactions float64 `json:"avgMonthlyTransactions"`
	LastTransactionAmount  float64 `json:"lastTransactionAmount"`
	TransactionHistory     float64 `json:"transactionHistory"`
}

type creditScoreRequest struct {
	MonthlyIncome      float64         `json:"monthlyIncome"`
	EmploymentDuration float64         `json:"employmentDuration"`
	PhoneData          phoneData       `json:"phoneData"`
	TransactionData    transactionData `json:"transactionData"`
	Amount             json.Number     `json:"amount"`
	Frequency          int             `json:"frequency"`
	NewAccount         bool            `json:"newAccount"`
}

type creditScoreResponse struct {
	Score     *float64 `json:"score"`
	RiskLevel string   `json:"risk_level"`
	Timestamp string   `json:"timestamp"`
}

// SubmitCreditScore scores the applicant. Failures are never retried.
func (c *CreditClient) SubmitCreditScore(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.CreditScoreResult, error) {
	payload := creditScoreRequest{
		MonthlyIncome:      profile.MonthlyIncome,
		EmploymentDuration: profile.EmploymentDurationYears,
		PhoneData: phoneData{
			CallFrequency:   profile.Phone.CallFrequency,
			AvgCallDuration: profile.Phone.AvgCallDuration,
			ContactsCount:   profile.Phone.ContactsCount,
		},
		TransactionData: transactionData{
			AvgMonthlyTransactions: profile.Transactions.AvgMonthlyTransactions,
			LastTransactionAmount:  profile.Transactions.LastTransactionAmount,
			TransactionHistory:     profile.Transactions.HistoryMonths,
		},
		Amount:     json.Number(request.Amount.String()),
		Frequency:  request.Frequency,
		NewAccount: request.IsNewAccount,
	}

	raw, err := c.call(ctx, http.MethodPost, creditScorePath, payload)
	if err != nil {
		return domain.CreditScoreResult{}, err
	}

	var resp creditScoreResponse
	if err := c.decode(raw, &resp, true); err != nil {
		return domain.CreditScoreResult{}, err
	}

	if resp.Score == nil {
		return domain.CreditScoreResult{}, c.missing([]string{"score"})
	}
	score := *resp.Score
	if score < 0 || score != math.Trunc(score) || score > math.MaxInt32 {
		return domain.CreditScoreResult{}, c.shape("score is not a non-negative integer")
	}

	assessedAt, err := parseTimestamp(resp.Timestamp)
	if err != nil {
		return domain.CreditScoreResult{}, c.shape(err.Error())
	}

	return domain.CreditScoreResult{
		Score:      int(score),
		Band:       resp.RiskLevel,
		AssessedAt: assessedAt,
	}, nil
}
