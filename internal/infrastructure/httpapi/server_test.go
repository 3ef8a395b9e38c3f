package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/usecase"
)

type mockDecider struct {
	mock.Mock
}

func (m *mockDecider) Decide(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.Decision, error) {
	args := m.Called(ctx, profile, request)
	return args.Get(0).(domain.Decision), args.Error(1)
}

func (m *mockDecider) ScoreCredit(ctx context.Context, profile domain.ApplicantProfile, request domain.LoanRequest) (domain.CreditScoreResult, error) {
	args := m.Called(ctx, profile, request)
	return args.Get(0).(domain.CreditScoreResult), args.Error(1)
}

func (m *mockDecider) CheckFraud(ctx context.Context, request domain.LoanRequest) (domain.FraudAssessment, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(domain.FraudAssessment), args.Error(1)
}

func (m *mockDecider) Thresholds() domain.Thresholds {
	return domain.DefaultThresholds
}

type fakeBoard struct {
	active    bool
	snap      *usecase.StatsSnapshot
	stale     bool
	activeCtx context.Context
}

func (b *fakeBoard) Activate(ctx context.Context) error {
	b.active = true
	b.activeCtx = ctx
	return nil
}

func (b *fakeBoard) Deactivate(context.Context) error {
	b.active = false
	return nil
}

func (b *fakeBoard) Active() bool { return b.active }

func (b *fakeBoard) Stats() (*usecase.StatsSnapshot, bool, error) {
	if !b.active {
		return nil, false, usecase.ErrDashboardInactive
	}
	return b.snap, b.stale, nil
}

const validForm = `{
	"monthlyIncome": "5000",
	"employmentDuration": 3,
	"phoneData": {"callFrequency": "20", "avgCallDuration": "4.5", "contactsCount": "150"},
	"transactionData": {"avgMonthlyTransactions": "40", "lastTransactionAmount": "120", "transactionHistory": "24"},
	"amount": "2500",
	"frequency": "12",
	"newAccount": false
}`

func newTestServer(decider Decider, board StatsBoard) *Server {
	return New(Config{Decider: decider, Dashboard: board})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSubmitApplicationApproved(t *testing.T) {
	t.Parallel()

	score, risk := 720, 30.0
	decider := &mockDecider{}
	decider.On("Decide", mock.Anything, mock.Anything, mock.MatchedBy(func(r domain.LoanRequest) bool {
		return r.Amount.Equal(decimal.NewFromInt(2500)) && r.Frequency == 12
	})).Return(domain.Decision{
		ID:          "dec-1",
		Status:      domain.StatusApproved,
		CreditScore: &score,
		RiskScore:   &risk,
		RiskLevel:   domain.RiskLow,
		RiskFactors: map[string]float64{"new_account": 1.5, "amount": 0.9},
		DecidedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil).Once()

	rec := do(t, newTestServer(decider, &fakeBoard{}), http.MethodPost, "/api/applications", validForm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body decisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.StatusApproved, body.Status)
	assert.True(t, body.Approved)
	assert.Equal(t, domain.CreditExcellent, body.CreditBand)
	assert.Equal(t, domain.SeverityNormal, body.RiskSeverity)
	require.Len(t, body.RiskFactors, 2)
	assert.Equal(t, "amount", body.RiskFactors[0].Name)
	assert.Equal(t, domain.SeverityHigh, body.RiskFactors[1].Severity)
	decider.AssertExpectations(t)
}

func TestSubmitApplicationErrorDecisionHasNoBands(t *testing.T) {
	t.Parallel()

	decider := &mockDecider{}
	decider.On("Decide", mock.Anything, mock.Anything, mock.Anything).Return(domain.Decision{
		ID:     "dec-2",
		Status: domain.StatusError,
		Reason: "credit score unavailable: request timed out",
	}, nil).Once()

	rec := do(t, newTestServer(decider, &fakeBoard{}), http.MethodPost, "/api/applications", validForm)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Nil(t, body["creditScore"])
	assert.Nil(t, body["riskScore"])
	assert.NotContains(t, body, "creditBand")
	assert.Equal(t, "credit score unavailable: request timed out", body["reason"])
}

func TestSubmitApplicationRejectsInvalidFormWithoutDeciding(t *testing.T) {
	t.Parallel()

	decider := &mockDecider{}
	form := strings.Replace(validForm, `"amount": "2500"`, `"amount": "-10"`, 1)

	rec := do(t, newTestServer(decider, &fakeBoard{}), http.MethodPost, "/api/applications", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Amount must be greater than 0", body.Fields["amount"])
	decider.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitApplicationMalformedBody(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(&mockDecider{}, &fakeBoard{}), http.MethodPost, "/api/applications", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreditCheckReturnsBand(t *testing.T) {
	t.Parallel()

	decider := &mockDecider{}
	decider.On("ScoreCredit", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.CreditScoreResult{Score: 600, Band: "good"}, nil).Once()

	rec := do(t, newTestServer(decider, &fakeBoard{}), http.MethodPost, "/api/credit-checks", validForm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"creditScore":600,"creditBand":"fair","serviceBand":"good"}`, rec.Body.String())
	decider.AssertNotCalled(t, "CheckFraud", mock.Anything, mock.Anything)
}

func TestCreditCheckUpstreamFailure(t *testing.T) {
	t.Parallel()

	decider := &mockDecider{}
	decider.On("ScoreCredit", mock.Anything, mock.Anything, mock.Anything).Return(domain.CreditScoreResult{},
		&domain.ServiceUnavailableError{Service: domain.ServiceCredit, Message: "request timed out"}).Once()

	rec := do(t, newTestServer(decider, &fakeBoard{}), http.MethodPost, "/api/credit-checks", validForm)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"credit score unavailable: request timed out"}`, rec.Body.String())
}

func TestFraudCheckReturnsSeverities(t *testing.T) {
	t.Parallel()

	decider := &mockDecider{}
	decider.On("CheckFraud", mock.Anything, mock.MatchedBy(func(r domain.LoanRequest) bool {
		return r.Amount.Equal(decimal.NewFromInt(900)) && r.Frequency == 3 && r.IsNewAccount
	})).Return(domain.FraudAssessment{
		RiskScore:      72,
		RiskLevel:      domain.RiskHigh,
		Recommendation: domain.RecommendReject,
		RiskFactors:    map[string]float64{"velocity": 1.1, "new_account": 1.4},
	}, nil).Once()

	body := `{"amount": 900, "frequency": "3", "newAccount": true}`
	rec := do(t, newTestServer(decider, &fakeBoard{}), http.MethodPost, "/api/fraud-checks", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp fraudCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.SeverityHigh, resp.RiskSeverity)
	assert.Equal(t, []riskFactorResponse{
		{Name: "new_account", Multiplier: 1.4, Severity: domain.SeverityHigh},
		{Name: "velocity", Multiplier: 1.1, Severity: domain.SeverityElevated},
	}, resp.RiskFactors)
	decider.AssertExpectations(t)
}

func TestFraudCheckValidatesLoanFields(t *testing.T) {
	t.Parallel()

	decider := &mockDecider{}
	rec := do(t, newTestServer(decider, &fakeBoard{}), http.MethodPost, "/api/fraud-checks", `{"amount": "", "frequency": "0"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.FieldErrors{
		"amount":    "Amount is required",
		"frequency": "Frequency must be at least 1",
	}, resp.Fields)
	decider.AssertNotCalled(t, "CheckFraud", mock.Anything, mock.Anything)
}

func TestValidateApplication(t *testing.T) {
	t.Parallel()

	s := newTestServer(&mockDecider{}, &fakeBoard{})

	rec := do(t, s, http.MethodPost, "/api/applications/validate", validForm)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Fields)

	form := strings.Replace(validForm, `"frequency": "12"`, `"frequency": ""`, 1)
	rec = do(t, s, http.MethodPost, "/api/applications/validate", form)
	require.Equal(t, http.StatusOK, rec.Code)
	var bad validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	assert.False(t, bad.Valid)
	assert.Contains(t, bad.Fields, "frequency")
}

func TestDashboardLifecycle(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	base := context.WithValue(context.Background(), ctxKey{}, "server")
	board := &fakeBoard{}
	s := New(Config{Decider: &mockDecider{}, Dashboard: board, BaseContext: base})

	rec := do(t, s, http.MethodGet, "/api/dashboard/stats", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server", board.activeCtx.Value(ctxKey{}))

	rec = do(t, s, http.MethodGet, "/api/dashboard/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	board.snap = &usecase.StatsSnapshot{
		Stats: domain.PortfolioStats{
			TotalActiveLoans: 12,
			TotalDisbursed:   decimal.RequireFromString("1500.50"),
			Monthly:          domain.MonthlySeries{Approvals: []float64{1, 2}},
		},
		FetchedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	board.stale = true

	rec = do(t, s, http.MethodGet, "/api/dashboard/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 12, body["totalActiveLoans"])
	assert.Equal(t, 1500.5, body["totalDisbursed"])
	assert.Contains(t, rec.Body.String(), `"totalDisbursed":1500.5`)
	assert.Equal(t, true, body["stale"])

	rec = do(t, s, http.MethodDelete, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, board.active)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	s := New(Config{Decider: &mockDecider{}, Dashboard: &fakeBoard{}, Metrics: metrics})

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, "# metrics", rec.Body.String())
}
