// Package commands implements the vogon command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"vogon/internal/cli"
	"vogon/internal/config"
	"vogon/internal/log"
	"vogon/internal/services"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Session is an opened ledger and how to release it.
type Session struct {
	Ledger *services.LedgerService
	Config *config.Config
	Close  func() error
}

// Opener opens the ledger the commands operate on.
type Opener func(ctx context.Context) (*Session, error)

// EnvOpener loads configuration from the environment and assembles the
// configured backend. Changes are published to AMQP when it is configured.
func EnvOpener(ctx context.Context) (*Session, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	cli.SetupLogger(cfg.LogLevel, log.ComponentCLI)
	res, err := cli.InitBackend(ctx, slog.Default(), cfg, "cli", true)
	if err != nil {
		return nil, err
	}
	return &Session{Ledger: res.Ledger, Config: cfg, Close: res.Cleanup}, nil
}

type app struct {
	open    Opener
	session *Session
}

// ledger opens the session on first use.
func (a *app) ledger(cmd *cobra.Command) (*services.LedgerService, error) {
	if a.session == nil {
		s, err := a.open(cmd.Context())
		if err != nil {
			return nil, err
		}
		a.session = s
	}
	return a.session.Ledger, nil
}

func (a *app) config() *config.Config {
	if a.session == nil || a.session.Config == nil {
		return config.Load()
	}
	return a.session.Config
}

func (a *app) close() error {
	if a.session == nil || a.session.Close == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	return err
}

// run adapts a ledger operation to cobra's RunE. The session is closed when
// the operation returns, whether it failed or not.
func (a *app) run(fn func(cmd *cobra.Command, l *services.LedgerService, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		l, err := a.ledger(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, a.close()) }()
		return fn(cmd, l, args)
	}
}

// NewRootCommand creates the root CLI command backed by the environment
// configuration.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(EnvOpener)
}

// NewRootCommandWith creates the root CLI command with all subcommands
// registered, opening the ledger through open.
func NewRootCommandWith(open Opener) *cobra.Command {
	a := &app{open: open}

	rootCmd := &cobra.Command{
		Use:     "vogon",
		Short:   "Personal finance ledger",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newAccountCommand(a),
		newTransactionCommand(a),
		newRateCommand(a),
		newRecalcCommand(a),
		newCleanupCommand(a),
		newTotalCommand(a),
		newDefaultCurrencyCommand(a),
		newImportCommand(a),
		newExportCommand(a),
	)

	return rootCmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
