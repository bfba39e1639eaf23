package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/logger"
	"github.com/kelmah/sessionkit/observability"
)

var (
	// ErrRefreshFailed wraps any failure of the refresh call.
	ErrRefreshFailed = errors.New("session: token refresh failed")
	// ErrNoTokenInResponse is returned when the refresh payload has no token.
	ErrNoTokenInResponse = errors.New("session: refresh response carries no token")
)

const refreshKey = "refresh"

// refreshToken obtains a new token. sent is the token the failed request
// carried. With CoalesceRefresh, concurrent callers share one refresh call and
// a caller whose token was already replaced reuses the stored one.
func (c *Client) refreshToken(ctx context.Context, sent string) (string, error) {
	if !c.config.CoalesceRefresh {
		return c.callRefresh(ctx)
	}

	if latest, ok := c.currentToken(ctx); ok && sent != "" && latest != sent {
		c.metrics.RecordRefresh(ctx, observability.RefreshShared)
		return latest, nil
	}

	ran := false
	v, err, _ := c.refreshes.Do(refreshKey, func() (any, error) {
		ran = true
		return c.callRefresh(context.WithoutCancel(ctx))
	})
	if !ran {
		c.metrics.RecordRefresh(ctx, observability.RefreshShared)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// callRefresh posts to the refresh endpoint with the stored token and
// persists the token it returns. The call bypasses the session state machine.
func (c *Client) callRefresh(ctx context.Context) (token string, err error) {
	ctx, span := c.tracer.Start(ctx, observability.SpanSessionRefresh,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(observability.AttrPath, c.config.RefreshPath)),
	)
	defer func() {
		result := observability.RefreshSucceeded
		if err != nil {
			result = observability.RefreshFailed
			observability.SetSpanError(span, err)
		}
		span.SetAttributes(attribute.String(observability.AttrResult, result))
		span.End()
		c.metrics.RecordRefresh(ctx, result)
	}()

	req := httpclient.Request{
		Method:            http.MethodPost,
		Path:              c.config.RefreshPath,
		SkipAuthRefresh:   true,
		SkipErrorHandling: true,
	}
	if current, ok := c.currentToken(ctx); ok {
		req.Auth = httpclient.BearerAuth(current)
	}

	resp, err := c.transport.Do(ctx, req)
	if err == nil && resp != nil && !resp.IsSuccess() {
		err = httpclient.ClassifyStatusCode(resp.StatusCode, resp.Body)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", ErrRefreshFailed)
	}

	token, err = tokenFromPayload(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	log := c.log.WithContext(ctx)
	if err := c.store.Set(ctx, token); err != nil {
		log.Error("persist refreshed token failed", logger.ErrorFields("set_token", err))
	}

	fields := logger.Fields(logger.FieldOperation, "refresh")
	if claims, err := ParseClaims(token); err == nil {
		fields[logger.FieldSubject] = claims.Subject
		if claims.ExpiresAt != nil {
			fields[logger.FieldExpiresAt] = claims.ExpiresAt.Time
		}
	}
	log.Debug("token refreshed", fields)

	return token, nil
}

// tokenFromPayload reads the new token from {"data":{"token":...}} or
// {"token":...}. The nested form wins when both are present.
func tokenFromPayload(body []byte) (string, error) {
	var payload struct {
		Token string `json:"token"`
		Data  *struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if payload.Data != nil {
		if t := strings.TrimSpace(payload.Data.Token); t != "" {
			return t, nil
		}
	}
	if t := strings.TrimSpace(payload.Token); t != "" {
		return t, nil
	}
	return "", ErrNoTokenInResponse
}
