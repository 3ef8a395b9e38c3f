package ports

import (
	"context"
	"time"

	"MicroloanCore/internal/domain"
)

// CreditScorer submits an applicant profile to the credit-scoring service.
type CreditScorer interface {
	SubmitCreditScore(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.CreditScoreResult, error)
}

// FraudAssessor asks the fraud-risk service to assess a transaction context.
type FraudAssessor interface {
	AssessFraud(ctx context.Context, request domain.LoanRequest) (domain.FraudAssessment, error)
}

// StatsFetcher pulls the aggregate portfolio snapshot.
type StatsFetcher interface {
	FetchStats(ctx context.Context) (domain.PortfolioStats, error)
}

// Scheduler controls when periodic jobs execute. Start runs job once
// immediately and then on every interval until Stop or ctx is done.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
