package schemas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// DecodeError means the response was not parseable JSON at all
type DecodeError struct {
	Schema string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("response is not valid JSON: %v", e.Cause)
	}
	return fmt.Sprintf("%s response is not valid JSON: %v", e.Schema, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Decode parses raw against the named embedded schema, unmarshals it into out and runs
// struct-level validation on the result. Any failure leaves out unusable; callers must not
// fall back to a partially decoded value.
func Decode(name, raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &DecodeError{Schema: name, Cause: errors.New("empty document")}
	}
	if !json.Valid([]byte(raw)) {
		return &DecodeError{Schema: name, Cause: errors.New("malformed JSON")}
	}

	if err := ValidateNamed(name, raw); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &DecodeError{Schema: name, Cause: err}
	}

	return Struct(name, out)
}

// Struct runs validator tags on v and converts failures into a ValidationError
func Struct(name string, v any) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("struct validation: %w", err)
	}

	ve := &ValidationError{Schema: name, Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("failed %q constraint", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q constraint (%s)", fe.Tag(), fe.Param())
		}
		ve.Errors = append(ve.Errors, FieldError{Field: fe.Namespace(), Message: msg})
	}
	return ve
}

// Fail builds a ValidationError for a semantic check made after decoding
func Fail(name, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Schema: name,
		Errors: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}},
	}
}
