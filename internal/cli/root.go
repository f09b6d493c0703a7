package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/services"
)

// annotationFullLogs marks long-running commands that log at the configured
// level. Other commands only log warnings and errors.
const annotationFullLogs = "full-logs"

// app holds state shared by the commands of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	dataFile    string
	backendType string
	verbose     bool
	port        string

	cfg     *config.Config
	logger  *log.Logger
	svc     *services.LedgerService
	cleanup backend.CleanupFunc
}

// Execute runs the ledger command against os.Args and returns the exit code.
func Execute() int {
	LoadEnvFile()
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree. out receives command output and
// errOut receives logs.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Track income and expenses for a small set of groups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.dataFile, "data-file", "", "JSON ledger file (overrides LEDGER_DATA_FILE)")
	pf.StringVar(&a.backendType, "backend", "", "storage backend: json, sqlite or memory (overrides DATA_BACKEND)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log at the configured level for every command")

	root.AddCommand(
		newServeCommand(a),
		newGroupsCommand(a),
		newRenameCommand(a),
		newCategoriesCommand(a),
		newAddCommand(a),
		newListCommand(a),
		newSummaryCommand(a),
		newDeleteCommand(a),
		newExportCommand(a),
		newResetCommand(a),
		newWatchCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadAndValidateConfig(func(c *config.Config) {
		if cmd.Flags().Changed("data-file") {
			c.DataFile = a.dataFile
		}
		if cmd.Flags().Changed("backend") {
			c.DataBackend = a.backendType
		}
		if cmd.Flags().Changed("port") {
			c.Port = a.port
		}
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	minLevel := slog.LevelWarn
	if a.verbose || cmd.Annotations[annotationFullLogs] == "true" {
		minLevel = slog.LevelDebug
	}
	a.logger, err = SetupLogger(cfg, a.errOut, minLevel)
	return err
}

// service opens the ledger on first use.
func (a *app) service(ctx context.Context) (*services.LedgerService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if a.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	svc, cleanup, err := OpenLedger(ctx, a.cfg, a.logger.WithComponent(log.ComponentCLI))
	if err != nil {
		return nil, err
	}
	a.svc, a.cleanup = svc, cleanup
	return svc, nil
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup, a.svc = nil, nil
	return err
}
