package domain

import "github.com/shopspring/decimal"

// PhoneUsage summarizes the applicant's phone activity.
type PhoneUsage struct {
	CallFrequency   float64
	AvgCallDuration float64
	ContactsCount   float64
}

// TransactionHistory summarizes the applicant's recent account activity.
type TransactionHistory struct {
	AvgMonthlyTransactions float64
	LastTransactionAmount  float64
	HistoryMonths          float64
}

// ApplicantProfile is the applicant data sent to the credit scorer.
// It is a value: build a new one instead of mutating a submitted profile.
type ApplicantProfile struct {
	MonthlyIncome           float64
	EmploymentDurationYears float64
	Phone                   PhoneUsage
	Transactions            TransactionHistory
}

// LoanRequest describes the requested loan and its transaction context.
type LoanRequest struct {
	Amount decimal.Decimal
	// Frequency counts the applicant's transactions in the trailing 24 hours.
	Frequency    int
	IsNewAccount bool
}
