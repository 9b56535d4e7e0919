// Package server provides the HTTP JSON API for the talent-compass engine.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/talent-compass/internal/assessment"
	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/evaluator"
	"github.com/jonathan/talent-compass/internal/evolution"
	"github.com/jonathan/talent-compass/internal/llm"
	"github.com/jonathan/talent-compass/internal/schemas"
	"github.com/jonathan/talent-compass/internal/timeline"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/jonathan/talent-compass/internal/usage"
)

// ErrValidation indicates a request that could not be read at all
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
//
//	400 unreadable request (bad JSON, bad path parameter)
//	422 well-formed request the domain rejects
//	404 unknown profile, decision, report or session
//	409 state conflicts (profile exists, decision resolved, version taken)
//	429 local budget or provider quota exhausted
//	502 the inference service answered with something unusable
//	504 the inference call timed out; other deadlines are internal errors
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		input      *evolution.InputError
		budget     *usage.BudgetError
		quota      *llm.QuotaError
		timeout    *llm.TimeoutError
		decode     *schemas.DecodeError
		schema     *schemas.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &budget), errors.As(err, &quota):
		return http.StatusTooManyRequests
	case errors.As(err, &decode), errors.As(err, &schema), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway
	case errors.As(err, &input),
		errors.Is(err, assessment.ErrInvalidInput),
		errors.Is(err, types.ErrUnknownDimension),
		errors.Is(err, types.ErrUnknownCategory),
		errors.Is(err, timeline.ErrInvalidObservation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, assessment.ErrProfileNotFound),
		errors.Is(err, assessment.ErrDecisionNotFound),
		errors.Is(err, assessment.ErrReportNotFound),
		errors.Is(err, timeline.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, assessment.ErrProfileExists),
		errors.Is(err, evaluator.ErrOutcomeResolved),
		errors.Is(err, db.ErrVersionConflict),
		errors.Is(err, timeline.ErrSessionExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable code sent alongside the message
func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnprocessableEntity:
		return "invalid_input"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "budget_exceeded"
	case http.StatusBadGateway:
		return "inference_failed"
	case http.StatusGatewayTimeout:
		return "inference_timeout"
	default:
		return "internal_error"
	}
}
