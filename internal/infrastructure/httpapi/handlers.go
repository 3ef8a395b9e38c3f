package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/usecase"
	"MicroloanCore/internal/validation"
)

const maxFormBytes = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeForm(w http.ResponseWriter, r *http.Request) (validation.ApplicationForm, bool) {
	var form validation.ApplicationForm
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed application body"})
		return form, false
	}
	return form, true
}

func (s *Server) handleValidateApplication(w http.ResponseWriter, r *http.Request) {
	form, ok := s.decodeForm(w, r)
	if !ok {
		return
	}
	_, _, errs := validation.ParseApplication(form)
	writeJSON(w, http.StatusOK, validationResponse{Valid: errs.Empty(), Fields: errs})
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	form, ok := s.decodeForm(w, r)
	if !ok {
		return
	}

	profile, request, errs := validation.ParseApplication(form)
	if !errs.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid application", Fields: errs})
		return
	}

	decision, err := s.decider.Decide(r.Context(), profile, request)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid application", Fields: verr.Fields})
			return
		}
		s.log.Error("decide application", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "decision could not be made"})
		return
	}

	writeJSON(w, http.StatusOK, newDecisionResponse(decision, s.decider.Thresholds()))
}

func (s *Server) handleCreditCheck(w http.ResponseWriter, r *http.Request) {
	form, ok := s.decodeForm(w, r)
	if !ok {
		return
	}

	profile, request, errs := validation.ParseApplication(form)
	if !errs.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid credit check", Fields: errs})
		return
	}

	res, err := s.decider.ScoreCredit(r.Context(), profile, request)
	if err != nil {
		s.writeCheckError(w, domain.ServiceCredit, err)
		return
	}
	writeJSON(w, http.StatusOK, newCreditCheckResponse(res, s.decider.Thresholds()))
}

func (s *Server) handleFraudCheck(w http.ResponseWriter, r *http.Request) {
	var form validation.LoanRequestForm
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed fraud check body"})
		return
	}

	request, errs := validation.ParseLoanRequest(form)
	if !errs.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid fraud check", Fields: errs})
		return
	}

	res, err := s.decider.CheckFraud(r.Context(), request)
	if err != nil {
		s.writeCheckError(w, domain.ServiceFraud, err)
		return
	}
	writeJSON(w, http.StatusOK, newFraudCheckResponse(res, s.decider.Thresholds()))
}

// writeCheckError maps a standalone check failure: bad input is 422, an
// unreachable or misbehaving upstream is 502.
func (s *Server) writeCheckError(w http.ResponseWriter, service string, err error) {
	var verr *domain.ValidationError
	var unavailable *domain.ServiceUnavailableError
	var shape *domain.UnexpectedResponseShapeError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid request", Fields: verr.Fields})
	case errors.As(err, &unavailable), errors.As(err, &shape):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: usecase.DescribeFailure(service, err)})
	default:
		s.log.Error("standalone check", "service", service, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "check could not be completed"})
	}
}

func (s *Server) handleActivateDashboard(w http.ResponseWriter, _ *http.Request) {
	// The poller outlives the request, so it runs under the server context.
	if err := s.dashboard.Activate(s.baseCtx); err != nil {
		s.log.Error("activate dashboard", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "dashboard could not be activated"})
		return
	}
	writeJSON(w, http.StatusOK, dashboardStateResponse{Active: true})
}

func (s *Server) handleDeactivateDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.Deactivate(r.Context()); err != nil {
		s.log.Warn("deactivate dashboard", "error", err)
	}
	writeJSON(w, http.StatusOK, dashboardStateResponse{Active: false})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, _ *http.Request) {
	snap, stale, err := s.dashboard.Stats()
	switch {
	case errors.Is(err, usecase.ErrDashboardInactive):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	case snap == nil:
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "portfolio stats not yet available"})
		return
	}
	writeJSON(w, http.StatusOK, newStatsResponse(snap, stale))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
