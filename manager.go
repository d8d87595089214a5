package rapid

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New()
	schemaEncoder = schema.NewEncoder()
)

// paramManager partitions the bound parameters of a request struct into
// the four role buckets and exposes the resolution operations used to
// assemble a request. It is built once per endpoint and never mutated
// after construction, so concurrent calls share it freely.
type paramManager struct {
	path   []*boundParam
	query  []*boundParam
	header []*boundParam
	body   []*boundParam

	byField map[string]*boundParam
}

// newParamManager introspects a request struct type. Fields without a
// role tag are ignored. The body bucket is checked for consistency here,
// at declaration time: file and form kinds allow one or more fields of
// the same kind, every other kind allows exactly one body field.
func newParamManager(t reflect.Type) (*paramManager, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("request type %s is not a struct", t)
	}

	m := &paramManager{byField: make(map[string]*boundParam)}
	for i := 0; i < t.NumField(); i++ {
		p, err := newBoundParam(t.Field(i))
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		switch p.kind {
		case KindPath:
			m.path = append(m.path, p)
		case KindQuery:
			m.query = append(m.query, p)
		case KindHeader:
			m.header = append(m.header, p)
		case KindBody:
			m.body = append(m.body, p)
		}
		m.byField[p.fieldName] = p
	}

	if len(m.body) > 0 {
		first := m.body[0]
		switch first.bodyKind {
		case BodyFile, BodyForm:
			for _, p := range m.body[1:] {
				if p.bodyKind != first.bodyKind {
					return nil, fmt.Errorf("body field %s is %s, but %s is %s: all body fields must share one kind",
						p.fieldName, p.bodyKind, first.fieldName, first.bodyKind)
				}
			}
		default:
			if len(m.body) > 1 {
				return nil, fmt.Errorf("only one %s body field allowed, found %d", first.bodyKind, len(m.body))
			}
		}
	}

	return m, nil
}

func (m *paramManager) lookup(field string) (*boundParam, bool) {
	p, ok := m.byField[field]
	return p, ok
}

// resolvePath substitutes path parameters into the template. Every
// {placeholder} must be covered by a resolved value; an unmatched
// placeholder is a missing-value error, never emitted verbatim.
func (m *paramManager) resolvePath(template string, rv reflect.Value) (string, error) {
	values := make(map[string]string, len(m.path))
	for _, p := range m.path {
		v, err := p.resolve(rv)
		if err != nil {
			return "", err
		}
		if v == nil {
			continue
		}
		values[p.name()] = stringify(v)
	}

	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		name := rest[open+1 : open+closing]
		v, ok := values[name]
		if !ok {
			return "", &MissingValueError{Param: name}
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(v))
		rest = rest[open+closing+1:]
	}
}

// resolveHeaders builds the header mapping, keyed by alias-or-name.
// Parameters resolving to nil are omitted.
func (m *paramManager) resolveHeaders(rv reflect.Value) (http.Header, error) {
	if len(m.header) == 0 {
		return nil, nil
	}
	h := make(http.Header, len(m.header))
	for _, p := range m.header {
		v, err := p.resolve(rv)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		h.Set(p.name(), stringify(v))
	}
	return h, nil
}

// resolveQuery builds the query mapping. Struct-typed parameters are
// expanded into multiple pairs via the gorilla/schema encoder, slices
// produce one pair per element, everything else is stringified under its
// alias-or-name. Parameters resolving to nil are omitted.
func (m *paramManager) resolveQuery(rv reflect.Value) (url.Values, error) {
	if len(m.query) == 0 {
		return nil, nil
	}
	q := make(url.Values, len(m.query))
	for _, p := range m.query {
		v, err := p.resolve(rv)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if err := addPair(q, p.name(), v); err != nil {
			return nil, fmt.Errorf("query %s: %w", p.name(), err)
		}
	}
	return q, nil
}

// resolveBody assembles the body payload. The returned keyword tells the
// request builder how to encode it: content (raw bytes), json, data
// (form) or files (multipart). A request without body parameters, or
// whose body parameters all resolved to nil, returns an empty keyword.
func (m *paramManager) resolveBody(rv reflect.Value) (keyword string, payload any, contentType string, err error) {
	if len(m.body) == 0 {
		return "", nil, "", nil
	}
	first := m.body[0]

	switch first.bodyKind {
	case BodyFile:
		files := make(map[string]any, len(m.body))
		for _, p := range m.body {
			v, err := p.resolve(rv)
			if err != nil {
				return "", nil, "", err
			}
			if v == nil {
				continue
			}
			files[p.name()] = v
		}
		if len(files) == 0 {
			return "", nil, "", nil
		}
		return first.bodyKind.keyword(), files, "", nil

	case BodyForm:
		form := url.Values{}
		for _, p := range m.body {
			v, err := p.resolve(rv)
			if err != nil {
				return "", nil, "", err
			}
			if v == nil {
				continue
			}
			if err := mergeForm(form, p.name(), v); err != nil {
				return "", nil, "", fmt.Errorf("form %s: %w", p.name(), err)
			}
		}
		if len(form) == 0 {
			return "", nil, "", nil
		}
		return first.bodyKind.keyword(), form, "application/x-www-form-urlencoded", nil

	case BodyModel, BodyXML:
		v, err := first.resolve(rv)
		if err != nil {
			return "", nil, "", err
		}
		if v == nil {
			return "", nil, "", nil
		}
		b, err := first.serialize(v)
		if err != nil {
			return "", nil, "", fmt.Errorf("serialize %s: %w", first.name(), err)
		}
		ct := "application/json"
		if first.bodyKind == BodyXML {
			ct = "application/xml"
		}
		return first.bodyKind.keyword(), b, ct, nil

	case BodyJSON:
		v, err := first.resolve(rv)
		if err != nil {
			return "", nil, "", err
		}
		if v == nil {
			return "", nil, "", nil
		}
		return first.bodyKind.keyword(), v, "application/json", nil

	default: // BodyRaw
		v, err := first.resolve(rv)
		if err != nil {
			return "", nil, "", err
		}
		if v == nil {
			return "", nil, "", nil
		}
		return first.bodyKind.keyword(), v, "", nil
	}
}

// addPair appends a resolved value to a url.Values mapping, expanding
// structs and slices.
func addPair(dst url.Values, name string, v any) error {
	rv := indirect(reflect.ValueOf(v))
	switch {
	case rv.Kind() == reflect.Struct && rv.Type() != reflect.TypeOf(time.Time{}):
		return schemaEncoder.Encode(rv.Interface(), dst)
	case rv.Kind() == reflect.Slice && rv.Type() != reflect.TypeOf([]byte(nil)):
		for i := 0; i < rv.Len(); i++ {
			dst.Add(name, stringify(rv.Index(i).Interface()))
		}
		return nil
	default:
		dst.Add(name, stringify(v))
		return nil
	}
}

// mergeForm merges one resolved form parameter into the accumulated
// payload: any string-keyed map merges entry-wise, structs expand
// through the gorilla/schema encoder, scalars land under the
// alias-or-name.
func mergeForm(form url.Values, name string, v any) error {
	if vals, ok := v.(url.Values); ok {
		for k, vs := range vals {
			for _, s := range vs {
				form.Add(k, s)
			}
		}
		return nil
	}

	rv := indirect(reflect.ValueOf(v))
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		for iter := rv.MapRange(); iter.Next(); {
			elem := iter.Value().Interface()
			if elem == nil {
				continue
			}
			ev := reflect.ValueOf(elem)
			if ev.Kind() == reflect.Slice && ev.Type() != reflect.TypeOf([]byte(nil)) {
				for i := 0; i < ev.Len(); i++ {
					form.Add(iter.Key().String(), stringify(ev.Index(i).Interface()))
				}
				continue
			}
			form.Set(iter.Key().String(), stringify(elem))
		}
		return nil
	case rv.Kind() == reflect.Struct && rv.Type() != reflect.TypeOf(time.Time{}):
		return schemaEncoder.Encode(rv.Interface(), form)
	default:
		form.Set(name, stringify(v))
		return nil
	}
}
