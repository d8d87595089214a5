package rapid

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/broady/rapid/internal/meta"
)

// Endpoint binds an HTTP method and path template to a Req/Res type
// pair. It is built once, typically as a package-level variable, and is
// immutable during calls: all call-time state lives on the stack of the
// call itself, so one Endpoint serves any number of concurrent calls.
type Endpoint[Req any, Res any] struct {
	method string
	path   string

	mgr      *paramManager
	respKind responseKind

	timeout     time.Duration
	headers     http.Header
	checkStatus *bool
	noIntercept bool
}

// NewEndpoint declares an endpoint for the given HTTP method and path
// template. The Req struct type is introspected here, exactly once;
// configuration mistakes (mixed body kinds, malformed tags or defaults)
// panic with a *ConfigError so they surface where the endpoint is
// declared.
func NewEndpoint[Req any, Res any](method, path string) *Endpoint[Req, Res] {
	mgr, err := newParamManager(reflect.TypeOf((*Req)(nil)).Elem())
	if err != nil {
		panic(&ConfigError{Endpoint: method + " " + path, Reason: err.Error()})
	}
	return &Endpoint[Req, Res]{
		method:   method,
		path:     path,
		mgr:      mgr,
		respKind: resolveResponseSpec(reflect.TypeOf((*Res)(nil)).Elem()),
	}
}

// Get declares a GET endpoint.
func Get[Req any, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodGet, path)
}

// Post declares a POST endpoint.
func Post[Req any, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodPost, path)
}

// Put declares a PUT endpoint.
func Put[Req any, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodPut, path)
}

// Patch declares a PATCH endpoint.
func Patch[Req any, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodPatch, path)
}

// Delete declares a DELETE endpoint.
func Delete[Req any, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodDelete, path)
}

// WithTimeout sets a per-call timeout override for this endpoint.
func (e *Endpoint[Req, Res]) WithTimeout(d time.Duration) *Endpoint[Req, Res] {
	e.timeout = d
	return e
}

// WithHeader adds a static header sent with every call to this endpoint.
func (e *Endpoint[Req, Res]) WithHeader(key, value string) *Endpoint[Req, Res] {
	if e.headers == nil {
		e.headers = make(http.Header)
	}
	e.headers.Add(key, value)
	return e
}

// WithStatusCheck forces the status check, including for raw
// *http.Response endpoints which skip it by default.
func (e *Endpoint[Req, Res]) WithStatusCheck() *Endpoint[Req, Res] {
	t := true
	e.checkStatus = &t
	return e
}

// WithoutStatusCheck disables the status check, letting error responses
// flow into the converter (useful with RawCapture models that carry the
// status alongside the decoded error payload).
func (e *Endpoint[Req, Res]) WithoutStatusCheck() *Endpoint[Req, Res] {
	f := false
	e.checkStatus = &f
	return e
}

// WithoutIntercept skips the client's interceptor chain for this
// endpoint.
func (e *Endpoint[Req, Res]) WithoutIntercept() *Endpoint[Req, Res] {
	e.noIntercept = true
	return e
}

// WithTransform overrides the wire transformation of one request field,
// named by its Go field name. The transformer receives the validated
// value and returns the value actually placed in the request. It panics
// with a *ConfigError if the field carries no role tag.
func (e *Endpoint[Req, Res]) WithTransform(field string, fn TransformFunc) *Endpoint[Req, Res] {
	e.param(field).transform = fn
	return e
}

// WithDefault sets a default factory for one request field, invoked when
// the field is absent in a call. It panics with a *ConfigError if the
// field carries no role tag.
func (e *Endpoint[Req, Res]) WithDefault(field string, fn DefaultFunc) *Endpoint[Req, Res] {
	e.param(field).defaultFunc = fn
	return e
}

// WithSerializer overrides the model serializer of a body field of kind
// model or xml. It panics with a *ConfigError if the field is not a
// model body.
func (e *Endpoint[Req, Res]) WithSerializer(field string, fn ModelSerializer) *Endpoint[Req, Res] {
	p := e.param(field)
	if p.bodyKind != BodyModel && p.bodyKind != BodyXML {
		panic(&ConfigError{
			Endpoint: e.id(),
			Reason:   fmt.Sprintf("field %s is not a model body", field),
		})
	}
	p.serialize = fn
	return e
}

func (e *Endpoint[Req, Res]) param(field string) *boundParam {
	p, ok := e.mgr.lookup(field)
	if !ok {
		panic(&ConfigError{
			Endpoint: e.id(),
			Reason:   fmt.Sprintf("no parameter bound to field %s", field),
		})
	}
	return p
}

func (e *Endpoint[Req, Res]) id() string {
	return e.method + " " + e.path
}

// Metadata returns the runtime metadata for the endpoint.
func (e *Endpoint[Req, Res]) Metadata() *meta.EndpointMetadata {
	return &meta.EndpointMetadata{
		Method:   e.method,
		Path:     e.path,
		Request:  reflect.TypeOf((*Req)(nil)).Elem(),
		Response: reflect.TypeOf((*Res)(nil)).Elem(),
		Timeout:  e.timeout,
	}
}

// BuildRequest resolves all parameters of one call into a
// transport-agnostic descriptor without sending it. Call uses it
// internally; it is exported for callers that need to inspect or replay
// requests.
func (e *Endpoint[Req, Res]) BuildRequest(req Req) (*Request, error) {
	rv := reflect.ValueOf(req)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("rapid: nil request for %s", e.id())
		}
		rv = rv.Elem()
	}

	path, err := e.mgr.resolvePath(e.path, rv)
	if err != nil {
		return nil, err
	}
	headers, err := e.mgr.resolveHeaders(rv)
	if err != nil {
		return nil, err
	}
	query, err := e.mgr.resolveQuery(rv)
	if err != nil {
		return nil, err
	}
	keyword, payload, contentType, err := e.mgr.resolveBody(rv)
	if err != nil {
		return nil, err
	}

	if len(e.headers) > 0 {
		if headers == nil {
			headers = make(http.Header, len(e.headers))
		}
		for k, vs := range e.headers {
			if headers.Get(k) != "" {
				continue
			}
			for _, v := range vs {
				headers.Add(k, v)
			}
		}
	}

	return &Request{
		Method:      e.method,
		Path:        path,
		Header:      headers,
		Query:       query,
		BodyKeyword: keyword,
		Body:        payload,
		ContentType: contentType,
		Timeout:     e.timeout,
	}, nil
}

// Call performs one request: bind and validate parameters, assemble the
// request, send it through the client, convert the response. It either
// returns a fully converted value or an error; no partial state escapes.
func (e *Endpoint[Req, Res]) Call(ctx context.Context, c *Client, req Req) (Res, error) {
	var zero Res

	if e.respKind == respInvalid {
		return zero, &UnsupportedTypeError{Type: reflect.TypeOf((*Res)(nil)).Elem()}
	}

	r, err := e.BuildRequest(req)
	if err != nil {
		return zero, err
	}

	resp, err := c.send(ctx, r, e.noIntercept)
	if err != nil {
		return zero, err
	}

	return convertResponse[Res](resp, e.respKind, e.checkStatus)
}
