package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Service names used in failure attribution.
const (
	ServiceCredit = "credit-score"
	ServiceFraud  = "fraud-check"
	ServiceStats  = "loan-stats"
)

// FieldErrors maps a form field path to its validation message.
type FieldErrors map[string]string

// Add records msg for field unless msg is empty.
func (f FieldErrors) Add(field, msg string) {
	if msg == "" {
		return
	}
	f[field] = msg
}

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// ValidationError blocks a submission before any remote call.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid application: " + strings.Join(parts, "; ")
}

// ServiceUnavailableError reports a transport failure or a non-success
// response from a remote service. Message is the service's own text when it
// sent one.
type ServiceUnavailableError struct {
	Service    string
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Service, e.Message)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}

// UnexpectedResponseShapeError reports a success status with a payload that
// lacks required fields or carries out-of-range values.
type UnexpectedResponseShapeError struct {
	Service string
	Detail  string
}

func (e *UnexpectedResponseShapeError) Error() string {
	return fmt.Sprintf("%s returned an unexpected response: %s", e.Service, e.Detail)
}
