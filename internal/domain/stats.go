package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MonthlySeries holds one point per reporting period for each metric.
type MonthlySeries struct {
	Approvals     []float64
	Repayments    []float64
	Defaults      []float64
	AvgLoanAmount []float64
}

// Periods returns the number of reporting periods.
func (m MonthlySeries) Periods() int {
	return len(m.Approvals)
}

// PortfolioStats is an aggregate snapshot of the loan book.
type PortfolioStats struct {
	TotalActiveLoans   int
	PendingApprovals   int
	TotalDisbursed     decimal.Decimal
	TotalRepaid        decimal.Decimal
	DefaultRatePercent float64
	AvgCreditScore     float64
	Monthly            MonthlySeries
}

// Validate checks the snapshot invariants.
func (s PortfolioStats) Validate() error {
	if s.TotalActiveLoans < 0 {
		return fmt.Errorf("total active loans is negative: %d", s.TotalActiveLoans)
	}
	if s.PendingApprovals < 0 {
		return fmt.Errorf("pending approvals is negative: %d", s.PendingApprovals)
	}
	if s.TotalDisbursed.IsNegative() {
		return fmt.Errorf("total disbursed is negative: %s", s.TotalDisbursed)
	}
	if s.TotalRepaid.IsNegative() {
		return fmt.Errorf("total repaid is negative: %s", s.TotalRepaid)
	}
	if s.DefaultRatePercent < 0 {
		return fmt.Errorf("default rate is negative: %v", s.DefaultRatePercent)
	}
	if s.AvgCreditScore < 0 {
		return fmt.Errorf("average credit score is negative: %v", s.AvgCreditScore)
	}

	n := s.Monthly.Periods()
	series := map[string][]float64{
		"repayments":      s.Monthly.Repayments,
		"defaults":        s.Monthly.Defaults,
		"avg loan amount": s.Monthly.AvgLoanAmount,
	}
	for name, values := range series {
		if len(values) != n {
			return fmt.Errorf("monthly %s has %d points, approvals has %d", name, len(values), n)
		}
	}
	return nil
}
