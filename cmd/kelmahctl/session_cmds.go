package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kelmah/sessionkit/component"
	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/session"
)

type loginResponse struct {
	Data struct {
		Token string `json:"token"`
		User  struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	} `json:"data"`
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(ctx context.Context, c *session.Client) error {
				out, err := session.Post[loginResponse](ctx, c, "/api/auth/login",
					map[string]string{"email": email, "password": password},
					httpclient.WithSkipAuthRefresh())
				if err != nil {
					return err
				}
				if out.Data.Token == "" {
					return errors.New("login response carries no token")
				}
				if err := a.store.Set(ctx, out.Data.Token); err != nil {
					return fmt.Errorf("store token: %w", err)
				}
				fmt.Fprintf(a.out, "Logged in as %s (%s)\n", out.Data.User.Email, out.Data.User.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(ctx context.Context, _ *session.Client) error {
				if err := a.store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Logged out")
				return nil
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(ctx context.Context, _ *session.Client) error {
				token, ok, err := a.store.Get(ctx)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Not logged in")
					return nil
				}
				claims, err := session.ParseClaims(token)
				if errors.Is(err, session.ErrOpaqueToken) {
					fmt.Fprintln(a.out, "Logged in (opaque token)")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Logged in as %s\n", claims.Email)
				fmt.Fprintf(a.out, "  subject: %s\n", claims.Subject)
				fmt.Fprintf(a.out, "  role:    %s\n", claims.Role)
				if claims.ExpiresAt != nil {
					state := "valid"
					if claims.Expired(time.Now()) {
						state = "expired, refreshed on next request"
					}
					fmt.Fprintf(a.out, "  expires: %s (%s)\n", claims.ExpiresAt.Time.Format(time.RFC3339), state)
				}
				return nil
			})
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API and the token store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(ctx context.Context, _ *session.Client) error {
				reports := append(a.registry.HealthAll(ctx), a.http.Health(ctx))
				for _, h := range reports {
					line := fmt.Sprintf("%-12s %s", h.Name, h.Status)
					if h.Message != "" {
						line += " (" + h.Message + ")"
					}
					fmt.Fprintln(a.out, line)
				}
				overall := component.Overall(reports)
				fmt.Fprintf(a.out, "overall: %s\n", overall)
				if overall == component.StatusUnhealthy {
					return errors.New("unhealthy")
				}
				return nil
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var query map[string]string
	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Send an authenticated GET and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(ctx context.Context, c *session.Client) error {
				resp, err := c.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: args[0], Query: query})
				if err != nil {
					return session.AsAppError(err)
				}
				if resp.StatusCode != http.StatusOK {
					fmt.Fprintf(a.errOut, "HTTP %d\n", resp.StatusCode)
				}
				return printBody(a, resp.Body)
			})
		},
	}
	cmd.Flags().StringToStringVarP(&query, "query", "q", nil, "Query parameters (key=value)")
	return cmd
}

// printBody indents JSON bodies and prints anything else as is.
func printBody(a *app, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = a.out.Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(a.out)
	return err
}
