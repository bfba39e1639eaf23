package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kelmah/sessionkit/component"
	"github.com/kelmah/sessionkit/config"
	"github.com/kelmah/sessionkit/httpclient"
	"github.com/kelmah/sessionkit/logger"
	"github.com/kelmah/sessionkit/observability"
	"github.com/kelmah/sessionkit/session"
	"github.com/kelmah/sessionkit/tokenstore"
)

// componentLoggers are rebuilt from the configured global logger on load.
var componentLoggers = []string{
	"component",
	"config",
	"httpclient",
	"mockapi",
	"observability",
	"session",
	"tokenstore",
}

// app carries the loaded configuration and, once started, the components
// behind the session.
type app struct {
	configPath string
	logLevel   string
	out        io.Writer
	errOut     io.Writer

	cfg config.AppConfig

	registry *component.Registry
	store    *tokenstore.Component
	http     *httpclient.Component
	session  *session.Component
	shutdown observability.ShutdownFunc
}

func (a *app) load() error {
	var opts []config.LoaderOption
	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, config.WithConfigFile(a.configPath))
	}

	var cfg config.AppConfig
	if err := config.LoadConfig(config.DefaultServiceName, &cfg, opts...); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Init(cfg.Logging)
	logger.RegisterDefaults(componentLoggers...)
	a.cfg = cfg
	return nil
}

// start brings up telemetry, the token store and the session client.
func (a *app) start(ctx context.Context) error {
	shutdown, err := observability.Init(ctx, a.cfg.Telemetry)
	if err != nil {
		return err
	}
	a.shutdown = shutdown

	a.store = tokenstore.NewComponent(a.cfg.TokenStore)
	a.http = httpclient.NewComponent(a.cfg.HTTPClient())
	a.session = session.NewComponent(a.http, a.store, a.cfg.Session,
		session.WithNavigator(&terminalNavigator{w: a.errOut}))

	a.registry = component.NewRegistry()
	for _, c := range []component.Component{a.store, a.session} {
		if err := a.registry.Register(c); err != nil {
			return err
		}
	}
	return a.registry.StartAll(ctx)
}

func (a *app) stop(ctx context.Context) error {
	var errs []error
	if a.registry != nil {
		errs = append(errs, a.registry.StopAll(ctx))
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	return errors.Join(errs...)
}

// withSession runs fn against a started session client and tears it down
// afterwards.
func (a *app) withSession(ctx context.Context, fn func(context.Context, *session.Client) error) (err error) {
	if err := a.start(ctx); err != nil {
		_ = a.stop(context.WithoutCancel(ctx))
		return err
	}
	defer func() {
		if stopErr := a.stop(context.WithoutCancel(ctx)); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	return fn(ctx, a.session.Client())
}

// terminalNavigator tells the user to log in again.
type terminalNavigator struct {
	w io.Writer
}

func (n *terminalNavigator) GoToLogin(_ context.Context, reason string) {
	fmt.Fprintf(n.w, "%s: session expired, run kelmahctl login\n", reason)
}

func (n *terminalNavigator) GoToUnauthorized(context.Context) {
	fmt.Fprintln(n.w, "access denied for this account")
}
