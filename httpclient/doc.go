// Package httpclient is the transport layer under the Kelmah session client.
//
// An Adapter resolves paths against a base URL, encodes JSON bodies, applies
// default headers and authentication, and turns every non-2xx status into a
// classified *Error while still returning the response. Transport failures
// come back with no response and a connection or timeout code, which is what
// IsNetworkUnreachable reports.
//
// # Basic Usage
//
//	a, err := httpclient.New(httpclient.Config{
//	    Name:            "kelmah-api",
//	    BaseURL:         "http://localhost:5001",
//	    WithCredentials: true,
//	})
//
//	resp, err := a.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/api/jobs",
//	})
//
// # With Resilience
//
//	a, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://kelmah-auth-service.onrender.com",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultBreakerConfig(),
//	})
//
// Only GET, HEAD, OPTIONS and PUT requests are retried.
package httpclient
