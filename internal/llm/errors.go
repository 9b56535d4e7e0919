package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrEmptyResponse is returned when the inference service answers with no text
var ErrEmptyResponse = errors.New("empty response from inference service")

// TimeoutError means the call did not complete in time. Safe to retry unchanged.
type TimeoutError struct {
	Op    string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Cause)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// QuotaError means the provider refused the call because a quota or rate limit was reached
type QuotaError struct {
	Provider Provider
	Cause    error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %v", e.Provider, e.Cause)
}

func (e *QuotaError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a timeout. Validation and quota failures are not retryable
// without changing the input or waiting for the quota window.
func IsRetryable(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsQuota reports whether err is a provider quota failure
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// classifyError maps a provider error onto the package's error kinds using the structured
// status carried by the error, never its message.
func classifyError(op string, provider Provider, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Cause: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return &QuotaError{Provider: provider, Cause: err}
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return &TimeoutError{Op: op, Cause: err}
		}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			return &QuotaError{Provider: provider, Cause: err}
		case codes.DeadlineExceeded:
			return &TimeoutError{Op: op, Cause: err}
		}
	}

	return fmt.Errorf("%s failed: %w", op, err)
}

// WrapTimeout turns a bare context deadline into a TimeoutError so callers can tell it apart
// from validation failures. Other errors are returned unchanged.
func WrapTimeout(op string, err error) error {
	if err == nil || IsRetryable(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Cause: err}
	}
	return err
}
