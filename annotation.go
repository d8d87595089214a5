package rapid

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the role a request struct field plays in the outgoing
// HTTP request.
type Kind int

const (
	kindNone Kind = iota
	// KindPath substitutes the field into a {placeholder} in the path template.
	KindPath
	// KindQuery adds the field to the URL query string.
	KindQuery
	// KindHeader adds the field to the request headers.
	KindHeader
	// KindBody sends the field in the request body; see BodyKind.
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindQuery:
		return "query"
	case KindHeader:
		return "header"
	case KindBody:
		return "body"
	default:
		return "none"
	}
}

// BodyKind selects the encoding discipline for a body field.
//
// BodyFile and BodyForm may appear on several fields of the same request
// struct, which are merged into one multipart or form payload. Every
// other kind permits exactly one body field.
type BodyKind int

const (
	// BodyRaw sends the value as-is: string, []byte or io.Reader.
	BodyRaw BodyKind = iota
	// BodyJSON marshals the value to JSON.
	BodyJSON
	// BodyForm URL-encodes the value into an application/x-www-form-urlencoded body.
	BodyForm
	// BodyFile sends the value as a part of a multipart/form-data body.
	BodyFile
	// BodyModel serializes a model to JSON via its ModelSerializer.
	BodyModel
	// BodyXML serializes a model to XML via its ModelSerializer.
	BodyXML
)

func (k BodyKind) String() string {
	switch k {
	case BodyRaw:
		return "raw"
	case BodyJSON:
		return "json"
	case BodyForm:
		return "form"
	case BodyFile:
		return "file"
	case BodyModel:
		return "model"
	case BodyXML:
		return "xml"
	default:
		return fmt.Sprintf("BodyKind(%d)", int(k))
	}
}

// keyword returns the transport keyword telling the request builder how
// to encode the payload: content, json, data or files.
func (k BodyKind) keyword() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyForm:
		return "data"
	case BodyFile:
		return "files"
	default:
		return "content"
	}
}

func parseBodyKind(s string) (BodyKind, error) {
	switch s {
	case "", "raw":
		return BodyRaw, nil
	case "json":
		return BodyJSON, nil
	case "form":
		return BodyForm, nil
	case "file":
		return BodyFile, nil
	case "model":
		return BodyModel, nil
	case "xml":
		return BodyXML, nil
	default:
		return BodyRaw, fmt.Errorf("unknown body kind %q", s)
	}
}

// TransformFunc converts a validated parameter value into its final wire
// representation. Transformers never receive a nil value; absent
// parameters are omitted before transformation runs.
type TransformFunc func(v any) (any, error)

// DefaultFunc produces a default value for a parameter that was not set
// in the request struct. It is invoked once per call.
type DefaultFunc func() any

// ModelSerializer converts a model value into the request payload.
// The default serializer for body kind "model" is JSON marshalling
// honoring the model's json tags; for body kind "xml" it is XML
// marshalling via encoding/xml.
type ModelSerializer func(v any) ([]byte, error)

func jsonSerializer(v any) ([]byte, error) {
	return json.Marshal(v)
}

func xmlSerializer(v any) ([]byte, error) {
	return xml.Marshal(v)
}

// XMLModel marks a struct as XML-mapped. Embed it into a response type
// to have the body decoded with encoding/xml instead of encoding/json.
//
//	type Feed struct {
//		rapid.XMLModel
//		Title string `xml:"title"`
//	}
type XMLModel struct{}

// stringify is the default transformer for path, query, header and form
// values.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case time.Duration:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
