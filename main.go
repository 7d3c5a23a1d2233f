package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"library-ledger/config"
	"library-ledger/internal/logging"
	"library-ledger/library"

	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	jsonOut    bool

	cfg    config.Config
	logger *slog.Logger
	mgr    *library.LibraryManager
	out    io.Writer
	errOut io.Writer
}

func main() {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	root := newRootCmd(a)
	err := root.ExecuteContext(context.Background())
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(a.errOut, renderError(err))
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library lending ledger: authors, books, patrons and loans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database file, overrides config")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newAuthorCmd(a),
		newBookCmd(a),
		newPatronCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newHistoryCmd(a),
		newLoansCmd(a),
		newCheckCmd(a),
	)
	return root
}

// skipsDatabase reports commands that never touch the ledger.
func skipsDatabase(cmd *cobra.Command) bool {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return true
	}
	return cmd.HasParent() && cmd.Parent().Name() == "completion"
}

func (a *app) open(cmd *cobra.Command) error {
	if skipsDatabase(cmd) {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg
	a.logger = logging.Init(a.errOut, cfg.LogLevel, cfg.LogFormat)

	mgr, err := library.NewLibraryManager(cfg.DBPath,
		library.WithLogger(a.logger),
		library.WithDatabaseOptions(library.WithBusyTimeout(cfg.BusyTimeout())),
	)
	if err != nil {
		return err
	}
	a.mgr = mgr
	a.logger.Debug("database opened", "path", cfg.DBPath, "command", cmd.CommandPath())
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

// renderError formats typed library errors as "<Kind>: <message>".
// Anything else (flag parsing, config) is printed as is.
func renderError(err error) string {
	var typed *library.Error
	if errors.As(err, &typed) {
		return library.KindName(err) + ": " + err.Error()
	}
	return "Error: " + err.Error()
}
