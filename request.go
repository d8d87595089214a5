package rapid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Request is the transport-agnostic description of one outgoing call.
// It is created fresh per call by the endpoint and discarded once the
// response arrives; nothing in it is shared across calls.
type Request struct {
	Method string
	// Path is the template with all placeholders substituted.
	Path   string
	Header http.Header
	Query  url.Values

	// BodyKeyword selects the body encoding: "content", "json", "data"
	// or "files". Empty means no body.
	BodyKeyword string
	Body        any
	ContentType string

	// Timeout overrides the client timeout for this call when non-zero.
	Timeout time.Duration
}

// File is a named multipart upload payload. Body fields of kind "file"
// may hold a *File to control the part's filename; plain string, []byte
// and io.Reader values are sent with the field name as filename.
type File struct {
	Name    string
	Content io.Reader
}

// build produces the concrete *http.Request handed to the transport.
func (r *Request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	u := joinURL(baseURL, r.Path)
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	body, contentType, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (r *Request) encodeBody() (io.Reader, string, error) {
	switch r.BodyKeyword {
	case "":
		return nil, "", nil

	case "content":
		rd, err := rawReader(r.Body)
		if err != nil {
			return nil, "", err
		}
		return rd, r.ContentType, nil

	case "json":
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil

	case "data":
		form, ok := r.Body.(url.Values)
		if !ok {
			return nil, "", fmt.Errorf("rapid: form body must be url.Values, got %T", r.Body)
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil

	case "files":
		files, ok := r.Body.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("rapid: files body must be map[string]any, got %T", r.Body)
		}
		return encodeMultipart(files)

	default:
		return nil, "", fmt.Errorf("rapid: unknown body keyword %q", r.BodyKeyword)
	}
}

func rawReader(v any) (io.Reader, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(t), nil
	case string:
		return strings.NewReader(t), nil
	case io.Reader:
		return t, nil
	default:
		return strings.NewReader(stringify(t)), nil
	}
}

// encodeMultipart writes the file parts in sorted field order so the
// payload is deterministic.
func encodeMultipart(files map[string]any) (io.Reader, string, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		filename := name
		var content io.Reader
		switch t := files[name].(type) {
		case *File:
			if t.Name != "" {
				filename = t.Name
			}
			content = t.Content
		case []byte:
			content = bytes.NewReader(t)
		case string:
			content = strings.NewReader(t)
		case io.Reader:
			content = t
		default:
			content = strings.NewReader(stringify(t))
		}

		part, err := w.CreateFormFile(name, filename)
		if err != nil {
			return nil, "", err
		}
		if content != nil {
			if _, err := io.Copy(part, content); err != nil {
				return nil, "", err
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	switch {
	case strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/"):
		return base + path[1:]
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(path, "/") && path != "":
		return base + "/" + path
	default:
		return base + path
	}
}
