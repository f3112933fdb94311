package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/termrepl/internal/app"
)

const rootLong = `termrepl - an interactive BASIC console for terminals and browsers.

Without arguments termrepl starts the read-eval-print loop on the current
terminal. With a program file it runs the program and exits with the code
passed to EXIT. Settings come from the config file (TOML or YAML), then
TERMREPL_* environment variables, then flags.`

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts app.Options

	cmd := &cobra.Command{
		Use:           "termrepl [program.bas]",
		Short:         "Interactive BASIC console for terminals and browsers",
		Long:          rootLong,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(opts, stdin, stdout, stderr)
			if err != nil {
				return &runError{err: err}
			}
			defer application.Shutdown()

			if len(args) == 1 {
				err = application.RunFile(cmd.Context(), args[0])
			} else {
				err = application.RunREPL(cmd.Context())
			}
			if err != nil {
				return &runError{err: err}
			}
			return nil
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("termrepl {{.Version}} (commit " + commit + ", built " + date + ")\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (.toml, .yaml)")
	flags.StringVar(&opts.ProgramsDir, "programs-dir", "", "Store programs as .bas files in this directory")
	flags.StringVar(&opts.ProgramsDB, "programs-db", "", "Store programs in this SQLite database")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	cmd.MarkFlagsMutuallyExclusive("programs-dir", "programs-db")

	cmd.AddCommand(newServeCmd(&opts, stdin, stdout, stderr))
	return cmd
}

func newApp(opts app.Options, stdin io.Reader, stdout, stderr io.Writer) (*app.Application, error) {
	opts.Stdin, opts.Stdout, opts.Stderr = stdin, stdout, stderr
	opts.Version, opts.BuildID = version, commit
	opts.Environ = os.Environ()
	return app.New(opts)
}
