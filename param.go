package rapid

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// boundParam pairs a request struct field with its parsed role
// configuration. It is built once per endpoint and immutable afterwards;
// all call-time state lives in the reflect.Value passed to resolve.
type boundParam struct {
	fieldName string
	index     []int

	kind     Kind
	bodyKind BodyKind

	alias    string
	required bool

	validateTag string

	hasDefault   bool
	defaultValue reflect.Value
	defaultFunc  DefaultFunc

	transform TransformFunc
	serialize ModelSerializer
}

// name returns the externally visible key: the alias when set, otherwise
// the Go field name.
func (p *boundParam) name() string {
	if p.alias != "" {
		return p.alias
	}
	return p.fieldName
}

// newBoundParam parses the role tags of a struct field. It returns nil
// when the field carries no role marker, mirroring parameters like a
// receiver that are simply not part of the request.
func newBoundParam(f reflect.StructField) (*boundParam, error) {
	p := &boundParam{
		fieldName: f.Name,
		index:     f.Index,
	}

	roles := 0
	if v, ok := f.Tag.Lookup("path"); ok {
		roles++
		p.kind = KindPath
		p.alias = roleTagName(v)
	}
	if v, ok := f.Tag.Lookup("query"); ok {
		roles++
		p.kind = KindQuery
		p.alias = roleTagName(v)
	}
	if v, ok := f.Tag.Lookup("header"); ok {
		roles++
		p.kind = KindHeader
		p.alias = roleTagName(v)
	}
	if v, ok := f.Tag.Lookup("body"); ok {
		roles++
		p.kind = KindBody
		bk, err := parseBodyKind(roleTagName(v))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		p.bodyKind = bk
		p.alias = f.Tag.Get("name")
		switch bk {
		case BodyModel:
			p.serialize = jsonSerializer
		case BodyXML:
			p.serialize = xmlSerializer
		}
	}
	if roles == 0 {
		return nil, nil
	}
	if roles > 1 {
		return nil, fmt.Errorf("field %s: multiple role tags", f.Name)
	}
	if f.PkgPath != "" {
		return nil, fmt.Errorf("field %s: role tag on unexported field", f.Name)
	}

	// The required constraint is enforced before validation so a missing
	// value surfaces as a MissingValueError, not a validator error.
	p.validateTag, p.required = splitRequired(f.Tag.Get("validate"))
	if p.kind == KindPath {
		p.required = true
	}

	if def, ok := f.Tag.Lookup("default"); ok {
		dv, err := parseDefault(def, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		p.hasDefault = true
		p.defaultValue = dv
	}

	return p, nil
}

// roleTagName returns the name portion of a role tag, tolerating
// json-style options after a comma. Absent values are always omitted, so
// an explicit omitempty option carries no extra meaning.
func roleTagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// splitRequired removes the "required" element from a validator tag so
// the remaining constraints can run via Var on values that passed the
// presence check.
func splitRequired(tag string) (rest string, required bool) {
	if tag == "" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	kept := parts[:0]
	for _, part := range parts {
		if part == "required" {
			required = true
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ","), required
}

// parseDefault parses a default literal into the field's type at
// declaration time, so malformed literals fail when the endpoint is
// declared.
func parseDefault(s string, t reflect.Type) (reflect.Value, error) {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	out := reflect.New(base).Elem()
	switch {
	case base == reflect.TypeOf(time.Duration(0)):
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q: %w", s, err)
		}
		out.Set(reflect.ValueOf(d))
	case base == reflect.TypeOf(time.Time{}):
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q: %w", s, err)
		}
		out.Set(reflect.ValueOf(ts))
	default:
		switch base.Kind() {
		case reflect.String:
			out.SetString(s)
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid default %q: %w", s, err)
			}
			out.SetBool(b)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid default %q: %w", s, err)
			}
			out.SetInt(n)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid default %q: %w", s, err)
			}
			out.SetUint(n)
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid default %q: %w", s, err)
			}
			out.SetFloat(f)
		default:
			return reflect.Value{}, fmt.Errorf("default tag unsupported for type %s", t)
		}
	}
	return out, nil
}

// isAbsent reports whether a field value counts as unset: nil for
// pointer-like kinds, the zero value otherwise. Callers that need to
// send an explicit zero use a pointer field.
func isAbsent(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

// resolve produces the final value of the parameter for one call:
// explicit value, else default, else nil (or a MissingValueError when
// the parameter is required). Non-nil values are validated against the
// field's validator constraints and then transformed. A nil result means
// the parameter is omitted from the request.
func (p *boundParam) resolve(rv reflect.Value) (any, error) {
	fv := rv.FieldByIndex(p.index)

	var val any
	switch {
	case !isAbsent(fv):
		val = indirect(fv).Interface()
	case p.defaultFunc != nil:
		val = p.defaultFunc()
	case p.hasDefault:
		val = p.defaultValue.Interface()
	case p.required:
		return nil, &MissingValueError{Param: p.name()}
	default:
		return nil, nil
	}
	if val == nil {
		if p.required {
			return nil, &MissingValueError{Param: p.name()}
		}
		return nil, nil
	}

	if p.validateTag != "" {
		if err := validate.Var(val, p.validateTag); err != nil {
			return nil, err
		}
	}

	if p.transform != nil {
		out, err := p.transform(val)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", p.name(), err)
		}
		val = out
	}
	return val, nil
}
