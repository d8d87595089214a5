package rapid

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"reflect"
)

// responseKind is the resolved shape of an endpoint's response type,
// determined once at declaration time.
type responseKind int

const (
	// respRaw passes the *http.Response through untouched.
	respRaw responseKind = iota
	// respString returns the decoded body text.
	respString
	// respBytes returns the raw body bytes.
	respBytes
	// respXML decodes the body into an XML-mapped model.
	respXML
	// respJSON decodes the body as JSON into the response type.
	respJSON
	// respInvalid marks a type the converter cannot produce. The error
	// surfaces on first call.
	respInvalid
)

var (
	rawResponseType = reflect.TypeOf(&http.Response{})
	stringType      = reflect.TypeOf("")
	bytesType       = reflect.TypeOf([]byte(nil))
	xmlMarkerType   = reflect.TypeOf(XMLModel{})
)

// resolveResponseSpec classifies a response type. An unannotated (any)
// response falls back to raw passthrough like the untyped default.
func resolveResponseSpec(t reflect.Type) responseKind {
	if t == nil || t == rawResponseType {
		return respRaw
	}
	switch t {
	case stringType:
		return respString
	case bytesType:
		return respBytes
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return respInvalid
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Struct {
		for i := 0; i < base.NumField(); i++ {
			f := base.Field(i)
			if f.Anonymous && f.Type == xmlMarkerType {
				return respXML
			}
		}
	}
	return respJSON
}

// HasRawResponse is implemented by response models that want the
// underlying *http.Response attached after decoding, typically by
// embedding RawCapture.
type HasRawResponse interface {
	SetRawResponse(*http.Response)
	RawResponse() *http.Response
}

// RawCapture is an embeddable side channel for the original HTTP
// response. The converter populates it after a model is decoded, so
// callers can reach status and headers alongside the parsed data.
//
//	type UserResponse struct {
//		rapid.RawCapture
//		Name string `json:"name"`
//	}
type RawCapture struct {
	raw *http.Response
}

// SetRawResponse stores the original response. It is called by the
// response converter.
func (c *RawCapture) SetRawResponse(r *http.Response) { c.raw = r }

// RawResponse returns the original response, or nil if the value was not
// produced by an endpoint call.
func (c *RawCapture) RawResponse() *http.Response { return c.raw }

// convertResponse turns a raw transport response into the endpoint's
// response type. The status check runs before any body parsing so a
// failing status is never masked by a decode error on an unparseable
// error body. check is a tristate: nil applies the default policy (check
// unless raw passthrough), true forces the check, false disables it.
func convertResponse[Res any](resp *http.Response, kind responseKind, check *bool) (Res, error) {
	var out Res

	if kind == respInvalid {
		return out, &UnsupportedTypeError{Type: reflect.TypeOf((*Res)(nil)).Elem()}
	}

	if kind == respRaw {
		// Raw passthrough checks status only when explicitly requested,
		// and leaves the body unread for the caller.
		if check != nil && *check {
			if err := statusError(resp); err != nil {
				return out, err
			}
		}
		return any(resp).(Res), nil
	}

	if check == nil || *check {
		if err := statusError(resp); err != nil {
			return out, err
		}
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return out, fmt.Errorf("rapid: read response body: %w", err)
	}

	switch kind {
	case respString:
		out = any(string(body)).(Res)
	case respBytes:
		out = any(body).(Res)
	case respXML:
		if err := xml.Unmarshal(body, &out); err != nil {
			return out, err
		}
		if err := validateModel(out); err != nil {
			return out, err
		}
	default: // respJSON
		if err := json.Unmarshal(body, &out); err != nil {
			return out, err
		}
		if err := validateModel(out); err != nil {
			return out, err
		}
	}

	attachResponse(&out, resp)
	return out, nil
}

// validateModel runs validator constraints declared on decoded struct
// models. Non-struct response types have no constraints to check.
func validateModel(v any) error {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(rv.Interface())
}

// attachResponse populates the raw-response side channel when the
// decoded value supports it, whether the response type is a value or a
// pointer.
func attachResponse(out any, resp *http.Response) {
	rv := reflect.ValueOf(out).Elem()
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return
	}
	if h, ok := rv.Interface().(HasRawResponse); ok {
		h.SetRawResponse(resp)
		return
	}
	if rv.CanAddr() {
		if h, ok := rv.Addr().Interface().(HasRawResponse); ok {
			h.SetRawResponse(resp)
		}
	}
}

// statusError converts a client or server failure status into a
// *StatusError carrying the raw error payload.
func statusError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		Response:   resp,
	}
}
