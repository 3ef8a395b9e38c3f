package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/metrics"
	"MicroloanCore/internal/ports"
	"MicroloanCore/internal/validation"
)

// Mode selects how the two scoring services are invoked.
type Mode string

const (
	// ModeConcurrent issues both calls together and fails fast.
	ModeConcurrent Mode = "concurrent"
	// ModeSequential scores credit first and skips the fraud call if it fails.
	ModeSequential Mode = "sequential"
)

// ParseMode maps a config value to a Mode; empty means concurrent.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeConcurrent:
		return ModeConcurrent, nil
	case ModeSequential:
		return ModeSequential, nil
	default:
		return "", fmt.Errorf("unknown underwriting mode %q", s)
	}
}

// UnderwriterDeps wires the scoring services and ambient collaborators.
type UnderwriterDeps struct {
	Credit     ports.CreditScorer
	Fraud      ports.FraudAssessor
	Thresholds domain.Thresholds
	Mode       Mode
	// CallTimeout bounds each remote call; zero leaves only the caller's deadline.
	CallTimeout time.Duration
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	NewID       func() string
	Now         func() time.Time
}

// Underwriter reduces the credit and fraud verdicts into one decision.
// It holds no per-request state; Decide may be called concurrently.
type Underwriter struct {
	credit      ports.CreditScorer
	fraud       ports.FraudAssessor
	thresholds  domain.Thresholds
	mode        Mode
	callTimeout time.Duration
	metrics     *metrics.Recorder
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time
}

// NewUnderwriter constructs the orchestration component.
func NewUnderwriter(deps UnderwriterDeps) *Underwriter {
	u := &Underwriter{
		credit:      deps.Credit,
		fraud:       deps.Fraud,
		thresholds:  deps.Thresholds,
		mode:        deps.Mode,
		callTimeout: deps.CallTimeout,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		newID:       deps.NewID,
		now:         deps.Now,
	}
	if u.thresholds == (domain.Thresholds{}) {
		u.thresholds = domain.DefaultThresholds
	}
	if u.mode == "" {
		u.mode = ModeConcurrent
	}
	if u.logger == nil {
		u.logger = slog.New(slog.DiscardHandler)
	}
	if u.newID == nil {
		u.newID = uuid.NewString
	}
	if u.now == nil {
		u.now = time.Now
	}
	return u
}

// Thresholds exposes the table the decision rule uses, for display bands.
func (u *Underwriter) Thresholds() domain.Thresholds {
	return u.thresholds
}

type verdicts struct {
	credit    domain.CreditScoreResult
	creditErr error
	fraud     domain.FraudAssessment
	fraudErr  error
}

// Decide validates the application, consults both services and applies the
// approval rule. A *domain.ValidationError is returned before any remote call
// when the input is malformed; every other outcome, including service
// failures, is reported through the returned Decision.
func (u *Underwriter) Decide(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.Decision, error) {
	if errs := validation.CheckApplication(profile, request); !errs.Empty() {
		return domain.Decision{}, &domain.ValidationError{Fields: errs}
	}
	if u.credit == nil || u.fraud == nil {
		return domain.Decision{}, errors.New("underwriter: scoring services are not configured")
	}

	var v verdicts
	if u.mode == ModeSequential {
		v = u.scoreSequentially(ctx, profile, request)
	} else {
		v = u.scoreConcurrently(ctx, profile, request)
	}

	decision := domain.Decision{ID: u.newID(), DecidedAt: u.now()}

	if v.creditErr != nil || v.fraudErr != nil {
		decision.Status = domain.StatusError
		decision.Reason = failureReason(v.creditErr, v.fraudErr)
		u.record(decision)
		return decision, nil
	}

	score, risk := v.credit.Score, v.fraud.RiskScore
	approved, failed := u.thresholds.Evaluate(score, risk)

	decision.CreditScore = &score
	decision.RiskScore = &risk
	decision.RiskLevel = v.fraud.RiskLevel
	decision.Recommendation = v.fraud.Recommendation
	decision.RiskFactors = maps.Clone(v.fraud.RiskFactors)
	if approved {
		decision.Status = domain.StatusApproved
	} else {
		decision.Status = domain.StatusRejected
		decision.Reason = strings.Join(failed, "; ")
	}

	u.record(decision)
	return decision, nil
}

// ScoreCredit runs a standalone credit score through the same validation,
// timeout and metrics path that Decide uses. Service failures come back as
// *domain.ServiceUnavailableError or *domain.UnexpectedResponseShapeError.
func (u *Underwriter) ScoreCredit(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.CreditScoreResult, error) {
	if errs := validation.CheckApplication(profile, request); !errs.Empty() {
		return domain.CreditScoreResult{}, &domain.ValidationError{Fields: errs}
	}
	if u.credit == nil {
		return domain.CreditScoreResult{}, errors.New("underwriter: credit service is not configured")
	}
	return u.submitCredit(ctx, profile, request)
}

// CheckFraud runs a standalone fraud check. Only the loan fields are validated.
func (u *Underwriter) CheckFraud(ctx context.Context, request domain.LoanRequest) (domain.FraudAssessment, error) {
	if errs := validation.CheckLoanRequest(request); !errs.Empty() {
		return domain.FraudAssessment{}, &domain.ValidationError{Fields: errs}
	}
	if u.fraud == nil {
		return domain.FraudAssessment{}, errors.New("underwriter: fraud service is not configured")
	}
	return u.assessFraud(ctx, request)
}

func (u *Underwriter) scoreSequentially(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) verdicts {
	var v verdicts
	v.credit, v.creditErr = u.submitCredit(ctx, profile, request)
	if v.creditErr != nil {
		return v
	}
	v.fraud, v.fraudErr = u.assessFraud(ctx, request)
	return v
}

// scoreConcurrently issues both calls at once. The first failure cancels the
// sibling; a sibling that failed only because of that cancellation is not
// reported.
func (u *Underwriter) scoreConcurrently(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) verdicts {
	var v verdicts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v.credit, v.creditErr = u.submitCredit(gctx, profile, request)
		return v.creditErr
	})
	g.Go(func() error {
		v.fraud, v.fraudErr = u.assessFraud(gctx, request)
		return v.fraudErr
	})
	_ = g.Wait()

	if ctx.Err() == nil && v.creditErr != nil && v.fraudErr != nil {
		switch {
		case errors.Is(v.fraudErr, context.Canceled) && !errors.Is(v.creditErr, context.Canceled):
			v.fraudErr = nil
		case errors.Is(v.creditErr, context.Canceled) && !errors.Is(v.fraudErr, context.Canceled):
			v.creditErr = nil
		}
	}
	return v
}

func (u *Underwriter) submitCredit(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.CreditScoreResult, error) {
	ctx, cancel := u.callContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := u.credit.SubmitCreditScore(ctx, profile, request)
	u.metrics.ServiceCall(domain.ServiceCredit, err, time.Since(start))
	if err != nil {
		err = asServiceFailure(domain.ServiceCredit, err)
		u.logger.Warn("credit score call failed", "error", err)
	}
	return res, err
}

func (u *Underwriter) assessFraud(ctx context.Context, request domain.LoanRequest) (domain.FraudAssessment, error) {
	ctx, cancel := u.callContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := u.fraud.AssessFraud(ctx, request)
	u.metrics.ServiceCall(domain.ServiceFraud, err, time.Since(start))
	if err != nil {
		err = asServiceFailure(domain.ServiceFraud, err)
		u.logger.Warn("fraud check call failed", "error", err)
	}
	return res, err
}

func (u *Underwriter) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.callTimeout)
}

func (u *Underwriter) record(d domain.Decision) {
	u.metrics.Decision(string(d.Status))

	attrs := []any{"id", d.ID, "status", d.Status}
	if d.CreditScore != nil {
		attrs = append(attrs, "credit_score", *d.CreditScore, "risk_score", *d.RiskScore)
	}
	if d.Reason != "" {
		attrs = append(attrs, "reason", d.Reason)
	}
	u.logger.Info("underwriting decision", attrs...)
}

// asServiceFailure keeps typed service errors and wraps anything else, such as
// a bare context error from a substituted client.
func asServiceFailure(service string, err error) error {
	var unavailable *domain.ServiceUnavailableError
	var shape *domain.UnexpectedResponseShapeError
	if errors.As(err, &unavailable) || errors.As(err, &shape) {
		return err
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return &domain.ServiceUnavailableError{Service: service, Message: msg, Err: err}
}

func failureMessage(err error) string {
	var unavailable *domain.ServiceUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Message
	}
	var shape *domain.UnexpectedResponseShapeError
	if errors.As(err, &shape) {
		return "unexpected response: " + shape.Detail
	}
	return err.Error()
}

var serviceTitles = map[string]string{
	domain.ServiceCredit: "credit score",
	domain.ServiceFraud:  "fraud check",
	domain.ServiceStats:  "loan stats",
}

// DescribeFailure renders a service failure as shown to the applicant, such
// as "credit score unavailable: request timed out".
func DescribeFailure(service string, err error) string {
	title, ok := serviceTitles[service]
	if !ok {
		title = service
	}
	return title + " unavailable: " + failureMessage(err)
}

func failureReason(creditErr, fraudErr error) string {
	var parts []string
	if creditErr != nil {
		parts = append(parts, DescribeFailure(domain.ServiceCredit, creditErr))
	}
	if fraudErr != nil {
		parts = append(parts, DescribeFailure(domain.ServiceFraud, fraudErr))
	}
	return strings.Join(parts, "; ")
}
