package rapid

import (
	"context"

	"github.com/sourcegraph/conc/iter"
	"github.com/sourcegraph/conc/panics"
)

// Async is a handle to an in-flight call started with CallAsync.
type Async[Res any] struct {
	done chan struct{}
	res  Res
	err  error
}

// Await blocks until the call finishes and returns its result. It may be
// called any number of times.
func (a *Async[Res]) Await() (Res, error) {
	<-a.done
	return a.res, a.err
}

// Done returns a channel closed when the call finishes, for use in
// select statements.
func (a *Async[Res]) Done() <-chan struct{} {
	return a.done
}

// CallAsync starts the call in its own goroutine and returns immediately.
// Resolution, transport and conversion are exactly the blocking Call; a
// panic inside the call is recovered and surfaced as the handle's error.
func (e *Endpoint[Req, Res]) CallAsync(ctx context.Context, c *Client, req Req) *Async[Res] {
	a := &Async[Res]{done: make(chan struct{})}
	go func() {
		defer close(a.done)
		if r := panics.Try(func() { a.res, a.err = e.Call(ctx, c, req) }); r != nil {
			a.err = r.AsError()
		}
	}()
	return a
}

// Gather performs one call per request concurrently and returns the
// results in request order. The first error cancels nothing: every call
// runs to completion, and the joined error of all failures is returned.
// Each call owns its own request descriptor; the endpoint and client are
// shared read-only.
func Gather[Req any, Res any](ctx context.Context, c *Client, e *Endpoint[Req, Res], reqs []Req) ([]Res, error) {
	return iter.MapErr(reqs, func(req *Req) (Res, error) {
		return e.Call(ctx, c, *req)
	})
}
