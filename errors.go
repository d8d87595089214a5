package rapid

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigError reports an invalid endpoint declaration, such as mixing
// incompatible body kinds or a malformed default literal. It is raised
// as a panic from NewEndpoint so misconfigured endpoints fail when they
// are declared, not on first call.
type ConfigError struct {
	Endpoint string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Endpoint == "" {
		return "rapid: " + e.Reason
	}
	return fmt.Sprintf("rapid: %s: %s", e.Endpoint, e.Reason)
}

// MissingValueError reports a required parameter that has neither an
// explicit value nor a default.
type MissingValueError struct {
	Param string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("rapid: missing value for parameter %q", e.Param)
}

// StatusError reports a response whose status code indicates a client or
// server failure. It is raised before any body parsing, so malformed
// error bodies never surface as decode errors. Body holds the raw error
// payload; Response keeps the original response for header inspection.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
	Response   *http.Response
}

func (e *StatusError) Error() string {
	if e.Response != nil && e.Response.Request != nil {
		req := e.Response.Request
		return fmt.Sprintf("rapid: unexpected status %s for %s %s", e.Status, req.Method, req.URL)
	}
	return fmt.Sprintf("rapid: unexpected status %s", e.Status)
}

// UnsupportedTypeError reports a response type the converter cannot
// produce, such as a channel or function type.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("rapid: unsupported response type %s", e.Type)
}

// ValidationSummary renders a validator error as a compact
// "field: message; field: message" string. Non-validator errors are
// returned via their Error method unchanged.
func ValidationSummary(err error) string {
	var valErrs validator.ValidationErrors
	if !asValidationErrors(err, &valErrs) {
		return err.Error()
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, ve.Field()+": "+formatValidationError(ve))
	}
	return strings.Join(messages, "; ")
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	for err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			*target = ve
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "len":
		return fmt.Sprintf("must have length %s", ve.Param())
	case "eq":
		return fmt.Sprintf("must equal %s", ve.Param())
	case "ne":
		return fmt.Sprintf("must not equal %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
