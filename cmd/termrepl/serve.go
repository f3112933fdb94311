package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/termrepl/internal/app"
)

func newServeCmd(opts *app.Options, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the console to browsers",
		Long: `Serve an xterm.js page whose terminal talks to a termrepl session over
a websocket. Every connection gets its own interpreter; saved programs are
shared through the configured storage.

Endpoints:
  GET /            Terminal page
  GET /ws          Session socket
  GET /buildinfo   Version, build id and session count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(*opts, stdin, stdout, stderr)
			if err != nil {
				return &runError{err: err}
			}
			defer application.Shutdown()

			if err := application.Serve(cmd.Context()); err != nil {
				return &runError{err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "Address to listen on (default from config, :8080)")
	return cmd
}
