// Package session is the Kelmah HTTP session client.
//
// A Client sits between callers and an httpclient.Adapter. It attaches the
// stored bearer token, refreshes it once when the API answers 401, turns
// failed health checks into a synthetic 503 response, and classifies network
// failures for logging.
//
//	adapter, _ := httpclient.New(httpclient.Config{BaseURL: cfg.BaseURL(), WithCredentials: true})
//	client, _ := session.New(adapter, tokenstore.NewMemory(), session.Config{},
//		session.WithNavigator(nav))
//
//	jobs, err := session.Get[[]Job](ctx, client, "/api/jobs")
//
// Request flags on httpclient.Request control the client per call:
// SkipAuthRefresh sends the request without a token and never refreshes,
// SkipErrorHandling returns failures untouched, and Retried marks a request
// that has already been resubmitted after a refresh.
package session
