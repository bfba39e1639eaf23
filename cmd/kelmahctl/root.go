package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   "kelmahctl",
		Short: "Kelmah API session client",
		Long: `kelmahctl keeps a Kelmah API session in a local token store.

Requests sent with "get" carry the stored token. An expired token is
refreshed once and the request is replayed; when the refresh fails the token
is cleared and you are asked to log in again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newHealthCmd(a),
		newGetCmd(a),
		newMockServerCmd(a),
		newVersionCmd(),
	)
	return cmd
}
