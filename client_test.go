package rapid

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_ProvidedTransportReused(t *testing.T) {
	hc := &http.Client{}
	c := NewClient("https://x.test", WithHTTPClient(hc))
	if c.httpClient() != hc {
		t.Error("expected the provided *http.Client verbatim")
	}
	// Close must not touch a caller-owned transport.
	c.Close()
	if c.built != nil {
		t.Error("no transport should be built when one was provided")
	}
}

func TestClient_LazyTransportBuiltOnce(t *testing.T) {
	c := NewClient("https://x.test")
	first := c.httpClient()
	if first == nil {
		t.Fatal("expected a lazily built transport")
	}
	if c.httpClient() != first {
		t.Error("lazily built transport must be reused across calls")
	}
}

func TestClient_DefaultHeadersAndQuery(t *testing.T) {
	type req struct {
		Auth string `header:"Authorization"`
	}
	ep := Get[req, echo]("/anything")

	srv := echoServer(t)
	c := NewClient(srv.URL,
		WithHeader("X-Api-Version", "7"),
		WithHeader("Authorization", "Bearer default"),
		WithQuery("api_key", "secret"),
	)

	out, err := ep.Call(context.Background(), c, req{Auth: "Bearer explicit"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := out.Header["X-Api-Version"]; len(got) != 1 || got[0] != "7" {
		t.Errorf("X-Api-Version = %v", got)
	}
	// Parameter-resolved headers win over client defaults.
	if got := out.Header["Authorization"]; len(got) != 1 || got[0] != "Bearer explicit" {
		t.Errorf("Authorization = %v", got)
	}
	if got := out.Query["api_key"]; len(got) != 1 || got[0] != "secret" {
		t.Errorf("api_key = %v", got)
	}
}

func TestClient_Interceptor(t *testing.T) {
	type req struct{}
	ep := Get[req, echo]("/signed")
	skipped := Get[req, echo]("/unsigned").WithoutIntercept()

	srv := echoServer(t)
	c := NewClient(srv.URL, WithInterceptor(SetHeader("X-Signature", "sig")))

	out, err := ep.Call(context.Background(), c, req{})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := out.Header["X-Signature"]; len(got) != 1 || got[0] != "sig" {
		t.Errorf("X-Signature = %v", got)
	}

	out, err = skipped.Call(context.Background(), c, req{})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, ok := out.Header["X-Signature"]; ok {
		t.Error("WithoutIntercept endpoint must skip the chain")
	}
}

func TestClient_InterceptorOrderAndBearerAuth(t *testing.T) {
	type req struct{}
	ep := Get[req, echo]("/auth")

	srv := echoServer(t)
	c := NewClient(srv.URL,
		WithInterceptor(BearerAuth("first")),
		WithInterceptor(BearerAuth("second")),
	)

	out, err := ep.Call(context.Background(), c, req{})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	// Later interceptors run after earlier ones and may overwrite.
	if got := out.Header["Authorization"]; len(got) != 1 || got[0] != "Bearer second" {
		t.Errorf("Authorization = %v", got)
	}
}

func TestClient_Logging(t *testing.T) {
	type req struct{}
	ep := Get[req, echo]("/logged")

	srv := echoServer(t)

	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewClient(srv.URL, WithLogger(logger))

	if _, err := ep.Call(context.Background(), c, req{}); err != nil {
		t.Fatalf("call: %v", err)
	}

	var entry map[string]any
	if err := json.NewDecoder(strings.NewReader(buf.String())).Decode(&entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["msg"] != "request completed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v", entry["status"])
	}
}

func TestClient_TransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	type req struct{}
	ep := Get[req, string]("/gone")
	c := NewClient(srv.URL)

	if _, err := ep.Call(context.Background(), c, req{}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestClient_InterceptorErrorShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, "{}")
	}))
	t.Cleanup(srv.Close)

	type req struct{}
	ep := Get[req, echo]("/denied")
	c := NewClient(srv.URL, WithInterceptor(func(r *http.Request) error {
		return io.ErrUnexpectedEOF
	}))

	if _, err := ep.Call(context.Background(), c, req{}); err == nil {
		t.Fatal("expected interceptor error")
	}
	if calls != 0 {
		t.Errorf("no request should reach the server, got %d", calls)
	}
}
