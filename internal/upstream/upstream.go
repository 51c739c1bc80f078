// Package upstream holds the HTTP plumbing shared by all third-party API
// clients: a common error taxonomy and a JSON GET helper with bounded
// timeouts. Clients make exactly one call per operation; there are no
// retries.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrorKind classifies an upstream failure by cause.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindNotFound    ErrorKind = "not_found"
	KindBadResponse ErrorKind = "bad_response"
)

// Error is returned by API clients instead of raw transport errors.
type Error struct {
	Service string
	Kind    ErrorKind
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Service, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classify maps an HTTP status code to an ErrorKind.
func classify(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusNotFound:
		return KindNotFound
	default:
		return KindBadResponse
	}
}

// DefaultTimeout bounds every upstream call when the caller supplies no
// client of its own.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of an upstream response we are willing to read.
const maxBody = 10 << 20

// NewClient returns an http.Client with the given timeout, falling back to
// DefaultTimeout when zero.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// GetJSON performs a single GET against url and decodes the JSON body into
// out. Non-2xx statuses and transport failures come back as *Error tagged
// with service.
func GetJSON(ctx context.Context, client *http.Client, service, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Service: service, Kind: KindBadResponse, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		// Timeouts and cancellations count as network failures too.
		return &Error{Service: service, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &Error{Service: service, Kind: KindNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Service: service,
			Kind:    classify(resp.StatusCode),
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Service: service, Kind: KindBadResponse, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
