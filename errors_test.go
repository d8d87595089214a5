package rapid

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Endpoint: "POST /upload", Reason: "mixed body kinds"}
	if got := err.Error(); got != "rapid: POST /upload: mixed body kinds" {
		t.Errorf("got %q", got)
	}
	err = &ConfigError{Reason: "bad"}
	if got := err.Error(); got != "rapid: bad" {
		t.Errorf("got %q", got)
	}
}

func TestMissingValueError_Error(t *testing.T) {
	err := &MissingValueError{Param: "user_id"}
	if !strings.Contains(err.Error(), `"user_id"`) {
		t.Errorf("error should name the parameter: %q", err.Error())
	}
}

func TestStatusError_Error(t *testing.T) {
	u, _ := url.Parse("https://x.test/users/1")
	err := &StatusError{
		StatusCode: 404,
		Status:     "404 Not Found",
		Response: &http.Response{
			Request: &http.Request{Method: "GET", URL: u},
		},
	}
	want := "rapid: unexpected status 404 Not Found for GET https://x.test/users/1"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	bare := &StatusError{Status: "500 Internal Server Error"}
	if !strings.Contains(bare.Error(), "500") {
		t.Errorf("got %q", bare.Error())
	}
}

func TestUnsupportedTypeError_Error(t *testing.T) {
	err := &UnsupportedTypeError{Type: reflect.TypeOf(make(chan int))}
	if !strings.Contains(err.Error(), "chan int") {
		t.Errorf("got %q", err.Error())
	}
}

func TestValidationSummary(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
		Age   int    `validate:"gte=18"`
	}
	err := validate.Struct(form{Email: "not-an-email", Age: 12})
	if err == nil {
		t.Fatal("expected validation error")
	}

	summary := ValidationSummary(err)
	if !strings.Contains(summary, "Email: must be a valid email address") {
		t.Errorf("summary = %q", summary)
	}
	if !strings.Contains(summary, "Age: must be at least 18") {
		t.Errorf("summary = %q", summary)
	}
}

func TestValidationSummary_WrappedAndPlainErrors(t *testing.T) {
	if got := ValidationSummary(errors.New("boom")); got != "boom" {
		t.Errorf("got %q", got)
	}

	type form struct {
		Name string `validate:"min=3"`
	}
	wrapped := fmt.Errorf("call failed: %w", validate.Struct(form{Name: "x"}))
	if got := ValidationSummary(wrapped); !strings.Contains(got, "Name: must be at least 3") {
		t.Errorf("got %q", got)
	}
}
