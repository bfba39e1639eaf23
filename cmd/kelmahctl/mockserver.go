package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kelmah/sessionkit/mockapi"
)

func newMockServerCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run the mock Kelmah API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.MockAPI
			if addr != "" {
				cfg.Addr = addr
			}
			srv, err := mockapi.New(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := srv.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "mock API listening on %s\n", srv.URL())
			for _, u := range cfg.Users {
				fmt.Fprintf(a.out, "  %s / %s (%s)\n", u.Email, u.Password, u.Role)
			}

			<-ctx.Done()
			return srv.Stop(context.WithoutCancel(ctx))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:5001)")
	return cmd
}
