package rapid

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Client owns the transport handle and the defaults injected into every
// request made through it. Endpoints are stateless; a single Client can
// serve any number of endpoints and concurrent calls.
//
// If a caller supplies an *http.Client via WithHTTPClient it is reused
// verbatim and its lifecycle belongs to the caller. Otherwise one is
// built lazily on first use and kept for the Client's lifetime so the
// transport's connection pool is shared across calls; Close releases its
// idle connections.
type Client struct {
	baseURL string

	provided *http.Client
	once     sync.Once
	built    *http.Client

	timeout      time.Duration
	headers      http.Header
	query        url.Values
	interceptors []RequestInterceptor
	intercept    RequestInterceptor
	logger       *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient supplies an existing transport handle. The Client will
// not close it.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.provided = hc }
}

// WithTimeout sets the default timeout applied to every call. Endpoints
// can override it per call with Endpoint.WithTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithHeader adds a default header sent with every request. Headers
// resolved from request parameters take precedence.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Add(key, value)
	}
}

// WithQuery adds a default query parameter sent with every request, such
// as an API key.
func WithQuery(key, value string) ClientOption {
	return func(c *Client) {
		if c.query == nil {
			c.query = make(url.Values)
		}
		c.query.Add(key, value)
	}
}

// WithInterceptor appends a pre-send hook to the client's interceptor
// chain.
func WithInterceptor(ic RequestInterceptor) ClientOption {
	return func(c *Client) { c.interceptors = append(c.interceptors, ic) }
}

// WithLogger enables request logging through the given slog logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}
	c.intercept = chainInterceptors(c.interceptors)
	return c
}

// BaseURL returns the URL all endpoint paths are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) httpClient() *http.Client {
	if c.provided != nil {
		return c.provided
	}
	c.once.Do(func() {
		c.built = &http.Client{Timeout: c.timeout}
	})
	return c.built
}

// Close releases idle connections held by a lazily built transport.
// Caller-supplied transports are untouched.
func (c *Client) Close() {
	if c.built != nil {
		c.built.CloseIdleConnections()
	}
}

// send applies the client defaults to the descriptor, builds the
// concrete request, runs the interceptor chain and hands the request to
// the transport.
func (c *Client) send(ctx context.Context, r *Request, skipIntercept bool) (*http.Response, error) {
	c.mergeDefaults(r)

	req, err := r.build(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}

	if !skipIntercept && c.intercept != nil {
		if err := c.intercept(req); err != nil {
			return nil, err
		}
	}

	hc := c.httpClient()
	if r.Timeout > 0 && r.Timeout != hc.Timeout {
		// Per-call override: shallow copy shares the transport pool but
		// carries its own deadline.
		clone := *hc
		clone.Timeout = r.Timeout
		hc = &clone
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if c.logger != nil {
		if err != nil {
			c.logger.ErrorContext(ctx, "request failed",
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)
		} else {
			c.logger.DebugContext(ctx, "request completed",
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", time.Since(start)),
			)
		}
	}
	return resp, err
}

// mergeDefaults injects the client-level default headers and query
// parameters without overriding values resolved from the request struct.
func (c *Client) mergeDefaults(r *Request) {
	if len(c.headers) > 0 {
		if r.Header == nil {
			r.Header = make(http.Header, len(c.headers))
		}
		for k, vs := range c.headers {
			if r.Header.Get(k) != "" {
				continue
			}
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}
	}
	if len(c.query) > 0 {
		if r.Query == nil {
			r.Query = make(url.Values, len(c.query))
		}
		for k, vs := range c.query {
			if r.Query.Has(k) {
				continue
			}
			for _, v := range vs {
				r.Query.Add(k, v)
			}
		}
	}
}
