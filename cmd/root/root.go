// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"
	"os"
	"strings"

	"shopdesk/ledger-csv/internal/config"
	"shopdesk/ledger-csv/internal/container"
	"shopdesk/ledger-csv/internal/fileutils"
	"shopdesk/ledger-csv/internal/financestore"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/recordfile"
	"shopdesk/ledger-csv/internal/validation"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	FromFile    string
	Output      string
	WithFinance bool
	LogLevel    string
}

var (
	// Log is the shared logger instance for commands. Logs go to stderr so
	// stdout carries only command output.
	Log = logging.NewLogrusAdapterWithOutput("info", "text", os.Stderr)

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "ledger-csv",
		Short: "Track shop debts and shipments, and export balances as CSV.",
		Long: `ledger-csv aggregates a shop's debt and shipment records per counterparty.
It reads records from the shop backend or a local CSV/JSON/YAML file, filters and
sorts them, and renders summaries, statements and CSV exports.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appContainer != nil {
				_ = appContainer.Close()
			}
		},
	}

	// SharedFlags holds the persistent flags.
	SharedFlags = CommonFlags{}

	appContainer *container.Container
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.FromFile, "from-file", "f", "", "Read records from a local CSV, JSON or YAML file instead of the backend")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file (default stdout)")
	Cmd.PersistentFlags().BoolVar(&SharedFlags.WithFinance, "with-finance", false, "Include finance store rows in the record list")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Override the configured log level")
}

func setup(cmd *cobra.Command, args []string) error {
	if appContainer != nil {
		return nil
	}
	if SharedFlags.LogLevel != "" {
		if err := os.Setenv("LEDGER_LOG_LEVEL", SharedFlags.LogLevel); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}
	SetContainer(c)
	return nil
}

// SetContainer installs the dependency container, mainly for tests.
func SetContainer(c *container.Container) {
	appContainer = c
	if c != nil {
		Log = c.GetLogger()
	}
}

// GetContainer returns the container set up by the root command.
func GetContainer() (*container.Container, error) {
	if appContainer == nil {
		return nil, fmt.Errorf("application is not initialized")
	}
	return appContainer, nil
}

// Currency is the configured currency label for amounts printed by commands.
func Currency() string {
	if appContainer == nil {
		return ""
	}
	return appContainer.GetReportGenerator().Options().Currency
}

// Context returns the command's context, or a background context when the
// command is invoked directly.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// LoadRecords returns the records every read command works on: the local file
// named by --from-file or the backend's debts and shipments, plus the finance
// store rows when --with-finance is set.
func LoadRecords(ctx context.Context) ([]models.LedgerRecord, error) {
	c, err := GetContainer()
	if err != nil {
		return nil, err
	}

	var records []models.LedgerRecord
	if SharedFlags.FromFile != "" {
		path := fileutils.ExpandHome(SharedFlags.FromFile)
		if err := validation.IsValidInputFile(path); err != nil {
			return nil, err
		}
		records, err = recordfile.ReadFile(path, c.GetConfig().DelimiterRune(), c.GetLogger())
		if err != nil {
			return nil, err
		}
	} else {
		client, err := c.Backend()
		if err != nil {
			return nil, fmt.Errorf("%w (set it or use --from-file)", err)
		}
		if records, err = client.ListRecords(ctx); err != nil {
			return nil, err
		}
	}

	if SharedFlags.WithFinance {
		store, err := c.FinanceStore(ctx)
		if err != nil {
			return nil, err
		}
		people, err := store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list finance records: %w", err)
		}
		records = append(records, financestore.ToLedgerRecords(people)...)
	}

	Log.Debug("Records loaded", logging.F(logging.FieldCount, len(records)))
	return records, nil
}

// WriteOutput sends data to --output, or to the command's stdout when unset.
func WriteOutput(cmd *cobra.Command, data []byte) error {
	return WriteOutputOr(cmd, data, "")
}

// WriteOutputOr is WriteOutput with a fallback path used when --output is
// unset. An empty fallback means stdout.
func WriteOutputOr(cmd *cobra.Command, data []byte, fallback string) error {
	path := strings.TrimSpace(SharedFlags.Output)
	if path == "" {
		path = fallback
	}
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	path = fileutils.ExpandHome(path)
	if err := fileutils.WriteFileAtomic(path, data, models.PermissionReportFile); err != nil {
		return err
	}
	Log.Info("Output written", logging.F(logging.FieldOutputFile, path))
	return nil
}

// AddFilterFlags registers the record filter flags on cmd. The sort flag is
// added only when withSort is set.
func AddFilterFlags(cmd *cobra.Command, p *pipeline.Params, withSort bool) {
	cmd.Flags().StringVarP(&p.Type, "type", "t", "", "Ledger side: all, given or taken")
	cmd.Flags().StringVar(&p.Counterparty, "counterparty", "", "Exact counterparty name (case-insensitive)")
	cmd.Flags().StringVarP(&p.Query, "query", "q", "", "Substring match on counterparty name")
	cmd.Flags().StringVar(&p.BranchID, "branch", "", "Branch id")
	cmd.Flags().StringVar(&p.Status, "status", "", "settled or unsettled")
	cmd.Flags().StringVar(&p.From, "from", "", "Start date (inclusive, needs --to)")
	cmd.Flags().StringVar(&p.To, "to", "", "End date (inclusive, needs --from)")
	if withSort {
		cmd.Flags().StringVarP(&p.Sort, "sort", "s", "", "Sort key and direction, e.g. amount:desc (default date:desc)")
	}
}
