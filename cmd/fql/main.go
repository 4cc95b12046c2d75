// Command fql is the FQL CLI: a cobra root command offering interactive,
// execute, fmt, and serve subcommands. Flags are assembled the same way
// whether declared on the root command or a subcommand (cobra.Command
// embeds a *pflag.FlagSet via Flags()).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/termfx/fql/internal/cliapp"
	"github.com/termfx/fql/internal/config"
	"github.com/termfx/fql/internal/driver"
	"github.com/termfx/fql/internal/driver/mockdriver"
	"github.com/termfx/fql/internal/driver/sqlstore"
	"github.com/termfx/fql/internal/engine"
	"github.com/termfx/fql/internal/tuplayer"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := config.Load()
	exitCode := cliapp.ExitSuccess

	root := &cobra.Command{
		Use:           "fql [query]",
		Short:         "fql evaluates FoundationDB Query Language expressions against a key-value store",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, a []string) error {
			eng, closeFn, err := buildEngine(cfg)
			if err != nil {
				exitCode = cliapp.ExitExecErr
				return err
			}
			defer closeFn()

			if len(a) == 0 {
				exitCode = cliapp.Interactive(eng, cmd.InOrStdin(), cmd.OutOrStdout())
				return nil
			}
			out := cliapp.RunQuery(eng, strings.Join(a, " "))
			exitCode = out.ExitCode
			if out.Err != nil {
				return out.Err
			}
			fmt.Fprint(cmd.OutOrStdout(), out.Text)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfg.DSN, "dsn", cfg.DSN, "storage backend DSN (sqlite:path, sqlite::memory:, libsql:..., postgres://...)")

	root.AddCommand(
		executeCmd(cfg, &exitCode),
		interactiveCmd(cfg, &exitCode),
		fmtCmd(&exitCode),
		serveCmd(cfg, &exitCode),
	)

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if exitCode == cliapp.ExitSuccess {
			exitCode = cliapp.ExitExecErr
		}
	}
	return exitCode
}

func executeCmd(cfg *config.Config, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <query>",
		Short: "execute a single FQL query and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := buildEngine(cfg)
			if err != nil {
				*exitCode = cliapp.ExitExecErr
				return err
			}
			defer closeFn()

			out := cliapp.RunQuery(eng, args[0])
			*exitCode = out.ExitCode
			if out.Err != nil {
				return out.Err
			}
			fmt.Fprint(cmd.OutOrStdout(), out.Text)
			return nil
		},
	}
}

func interactiveCmd(cfg *config.Config, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "start a line-oriented REPL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := buildEngine(cfg)
			if err != nil {
				*exitCode = cliapp.ExitExecErr
				return err
			}
			defer closeFn()

			*exitCode = cliapp.Interactive(eng, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
}

func fmtCmd(exitCode *int) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "fmt <query>",
		Short: "reformat a query to its canonical FQL text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cliapp.FormatQuery(args[0], check)
			*exitCode = out.ExitCode
			fmt.Fprint(cmd.OutOrStdout(), out.Text)
			if out.Err != nil {
				return out.Err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "fail and print a diff instead of rewriting when input isn't canonical")
	return cmd
}

func serveCmd(cfg *config.Config, exitCode *int) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "expose the REPL loop over a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := buildEngine(cfg)
			if err != nil {
				*exitCode = cliapp.ExitExecErr
				return err
			}
			defer closeFn()

			if err := cliapp.Serve(context.Background(), eng, addr); err != nil {
				*exitCode = cliapp.ExitExecErr
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":4920", "listen address for the websocket REPL")
	return cmd
}

func buildEngine(cfg *config.Config) (*engine.Engine, func() error, error) {
	var drv driver.Driver
	var closeFn func() error

	if cfg.DSN == "sqlite::memory:" {
		m := mockdriver.New()
		drv, closeFn = m, m.Close
	} else {
		sd, err := sqlstore.Open(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("fql: opening storage %q: %w", cfg.DSN, err)
		}
		drv, closeFn = sd, sd.Close
	}

	ecfg := engine.DefaultConfig(tuplayer.Codec{})
	ecfg.Endianness = cfg.Endianness
	ecfg.MaxRetries = cfg.MaxRetries
	ecfg.RetryBaseDelay = cfg.RetryBaseDelay
	ecfg.Timeout = cfg.Timeout

	return engine.New(drv, ecfg), closeFn, nil
}
