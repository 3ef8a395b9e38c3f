package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/ports"
)

const loanStatsPath = "/api/loan-stats"

// StatsClient fetches portfolio snapshots from the loan-stats endpoint.
type StatsClient struct {
	*Client
}

var _ ports.StatsFetcher = (*StatsClient)(nil)

// NewStatsClient binds a client to the loan-stats service base URL.
func NewStatsClient(baseURL, apiKey string, timeout time.Duration) *StatsClient {
	return &StatsClient{Client: NewClient(domain.ServiceStats, baseURL, apiKey, timeout)}
}

type monthlyData struct {
	LoanApprovals []float64 `json:"loan_approvals"`
	Repayments    []float64 `json:"repayments"`
	Defaults      []float64 `json:"defaults"`
	AvgLoanAmount []float64 `json:"avg_loan_amount"`
}

type loanStatsResponse struct {
	TotalActiveLoans *float64         `json:"total_active_loans"`
	PendingApprovals *float64         `json:"pending_approvals"`
	TotalDisbursed   *json.RawMessage `json:"total_disbursed"`
	TotalRepaid      *json.RawMessage `json:"total_repaid"`
	DefaultRate      *float64         `json:"default_rate"`
	AvgCreditScore   *float64         `json:"avg_credit_score"`
	MonthlyData      *monthlyData     `json:"monthly_data"`
}

// FetchStats returns a complete snapshot. Partial payloads are rejected.
func (c *StatsClient) FetchStats(ctx context.Context) (domain.PortfolioStats, error) {
	raw, err := c.call(ctx, http.MethodGet, loanStatsPath, nil)
	if err != nil {
		return domain.PortfolioStats{}, err
	}

	var resp loanStatsResponse
	if err := c.decode(raw, &resp, false); err != nil {
		return domain.PortfolioStats{}, err
	}

	var missing []string
	check := func(present bool, name string) {
		if !present {
			missing = append(missing, name)
		}
	}
	check(resp.TotalActiveLoans != nil, "total_active_loans")
	check(resp.PendingApprovals != nil, "pending_approvals")
	check(resp.TotalDisbursed != nil, "total_disbursed")
	check(resp.TotalRepaid != nil, "total_repaid")
	check(resp.DefaultRate != nil, "default_rate")
	check(resp.AvgCreditScore != nil, "avg_credit_score")
	check(resp.MonthlyData != nil, "monthly_data")
	if resp.MonthlyData != nil {
		check(resp.MonthlyData.LoanApprovals != nil, "monthly_data.loan_approvals")
		check(resp.MonthlyData.Repayments != nil, "monthly_data.repayments")
		check(resp.MonthlyData.Defaults != nil, "monthly_data.defaults")
		check(resp.MonthlyData.AvgLoanAmount != nil, "monthly_data.avg_loan_amount")
	}
	if len(missing) > 0 {
		return domain.PortfolioStats{}, c.missing(missing)
	}

	if !isCount(*resp.TotalActiveLoans) || !isCount(*resp.PendingApprovals) {
		return domain.PortfolioStats{}, c.shape("loan counts must be non-negative integers")
	}

	disbursed, err := parseMoney(*resp.TotalDisbursed)
	if err != nil {
		return domain.PortfolioStats{}, c.shape("total_disbursed " + err.Error())
	}
	repaid, err := parseMoney(*resp.TotalRepaid)
	if err != nil {
		return domain.PortfolioStats{}, c.shape("total_repaid " + err.Error())
	}

	stats := domain.PortfolioStats{
		TotalActiveLoans:   int(*resp.TotalActiveLoans),
		PendingApprovals:   int(*resp.PendingApprovals),
		TotalDisbursed:     disbursed,
		TotalRepaid:        repaid,
		DefaultRatePercent: *resp.DefaultRate,
		AvgCreditScore:     *resp.AvgCreditScore,
		Monthly: domain.MonthlySeries{
			Approvals:     resp.MonthlyData.LoanApprovals,
			Repayments:    resp.MonthlyData.Repayments,
			Defaults:      resp.MonthlyData.Defaults,
			AvgLoanAmount: resp.MonthlyData.AvgLoanAmount,
		},
	}
	if err := stats.Validate(); err != nil {
		return domain.PortfolioStats{}, c.shape(err.Error())
	}
	return stats, nil
}

// parseMoney reads a JSON number exactly. Quoted amounts are rejected rather
// than coerced.
func parseMoney(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s[0] == '"' || !json.Valid(raw) {
		return decimal.Decimal{}, errors.New("must be a JSON number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.New("must be a JSON number")
	}
	return d, nil
}

func isCount(v float64) bool {
	return v >= 0 && v == math.Trunc(v) && v <= math.MaxInt32
}
