package session

import (
	"context"

	"github.com/kelmah/sessionkit/httpclient"
)

// TokenStore holds the single session token.
type TokenStore interface {
	Get(ctx context.Context) (token string, ok bool, err error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Navigator receives the redirect to the login entry point after the session
// could not be recovered.
type Navigator interface {
	GoToLogin(ctx context.Context, reason string)
}

// UnauthorizedNavigator is implemented by navigators that also handle 403
// responses.
type UnauthorizedNavigator interface {
	Navigator
	GoToUnauthorized(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, reason string)

// GoToLogin calls f.
func (f NavigatorFunc) GoToLogin(ctx context.Context, reason string) { f(ctx, reason) }

// Transport sends one request. Non-2xx responses are returned together with
// an *httpclient.Error.
type Transport interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

var _ Transport = (*httpclient.Adapter)(nil)

type nopNavigator struct{}

func (nopNavigator) GoToLogin(context.Context, string) {}
