package rapid

import "net/http"

// RequestInterceptor is a hook that runs on every outgoing request just
// before it is handed to the transport. Interceptors can mutate the
// request, for example to attach a computed signature or an auth header,
// or short-circuit the call by returning an error.
//
// Interceptors run in the order they were added to the client. Endpoints
// can opt out with WithoutIntercept.
type RequestInterceptor func(req *http.Request) error

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice runs first.
func chainInterceptors(interceptors []RequestInterceptor) RequestInterceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(req *http.Request) error {
		for _, ic := range interceptors {
			if err := ic(req); err != nil {
				return err
			}
		}
		return nil
	}
}

// BearerAuth returns an interceptor setting the Authorization header on
// every request.
func BearerAuth(token string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// SetHeader returns an interceptor adding a fixed header to every
// request.
func SetHeader(key, value string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(key, value)
		return nil
	}
}
