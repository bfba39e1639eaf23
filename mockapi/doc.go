// Package mockapi is an in-process double of the Kelmah API.
//
// It serves the endpoints the session client talks to (health, login,
// refresh) plus a small jobs resource, and exposes switches to break them:
//
//	srv, err := mockapi.New(mockapi.Config{TokenTTL: time.Minute})
//	if err != nil { ... }
//	ts := httptest.NewServer(srv.Handler())
//	defer ts.Close()
//
//	srv.ExpireAll()             // every issued token now answers 401
//	srv.SetRefreshFailing(true) // refresh answers 401
//	srv.SetHealthy(false)       // /api/health answers 503
//
// Tokens are HS256 JWTs. Refresh accepts any token signed by the server,
// expired or not, and issues a fresh one.
package mockapi
