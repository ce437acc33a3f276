// Package httpclient is the single egress point to the Assigno REST API. It owns the base URL,
// default headers, bearer credential attachment and the global handling of rejected
// credentials. Callers never talk to the network except through a Client.
package httpclient

import (
	"context"
)

// HTTPClientInterface is the request surface consumed by the session store and resource services.
type HTTPClientInterface interface {
	// Do issues a request and returns the unmodified response on a 2xx status.
	// Non-2xx statuses are returned as *HTTPError; transport failures wrap ErrTransport.
	Do(ctx context.Context, opts RequestOptions) (*Response, error)

	// Stream issues a request and returns the raw response body without reading it.
	// The caller must close the returned body.
	Stream(ctx context.Context, opts RequestOptions) (*StreamResponse, error)
}

// Session is the credential source the client consults on every request.
type Session interface {
	// Token returns the current bearer credential, or "" when there is none.
	Token() string
	// Invalidate destroys the session after a rejected credential. It reports whether
	// this call moved an authenticated session to unauthenticated.
	Invalidate() bool
}

var _ HTTPClientInterface = &Client{}
