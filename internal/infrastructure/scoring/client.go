package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"MicroloanCore/internal/domain"
)

const (
	statusSuccess   = "success"
	maxResponseSize = 1 << 20
)

// Client is a JSON transport bound to one remote service.
type Client struct {
	service  string
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a reusable HTTP client for service at endpoint.
// timeout bounds the whole exchange; callers may set tighter deadlines via ctx.
func NewClient(service, endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		service:  service,
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// envelope is the status wrapper shared by the scoring services.
type envelope struct {
	Status *string `json:"status"`
	Error  string  `json:"error"`
}

// call performs one request and returns the raw body of a 2xx response.
// Transport failures and non-2xx responses become ServiceUnavailableError.
func (c *Client) call(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.unavailable(0, transportMessage(err), err)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if closeErr := resp.Body.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close response body: %w", closeErr)
	}
	if err != nil {
		return nil, c.unavailable(resp.StatusCode, "read response: "+err.Error(), err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Error != "" {
			return nil, c.unavailable(resp.StatusCode, env.Error, nil)
		}
		return nil, c.unavailable(resp.StatusCode, "unexpected status "+resp.Status, nil)
	}

	return raw, nil
}

// decode unmarshals a success body into v and enforces the status envelope.
// When requireStatus is false an absent status is accepted.
func (c *Client) decode(raw []byte, v any, requireStatus bool) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return c.shape("decode response: " + err.Error())
	}
	switch {
	case env.Status == nil && requireStatus:
		return c.shape("missing status")
	case env.Status != nil && *env.Status != statusSuccess:
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("service reported status %q", *env.Status)
		}
		return c.unavailable(http.StatusOK, msg, nil)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return c.shape("decode response: " + err.Error())
	}
	return nil
}

func (c *Client) unavailable(status int, msg string, err error) error {
	return &domain.ServiceUnavailableError{
		Service:    c.service,
		Message:    msg,
		StatusCode: status,
		Err:        err,
	}
}

func (c *Client) shape(detail string) error {
	return &domain.UnexpectedResponseShapeError{Service: c.service, Detail: detail}
}

func (c *Client) missing(fields []string) error {
	return c.shape("missing " + strings.Join(fields, ", "))
}

func transportMessage(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	default:
		return err.Error()
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseTimestamp accepts RFC 3339 and zone-less ISO 8601 timestamps.
// An empty value yields the zero time.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
