// Package list handles the filtered record listing command
package list

import (
	"bytes"
	"strings"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/recordfile"
	"shopdesk/ledger-csv/internal/validation"

	"github.com/spf13/cobra"
)

var (
	params pipeline.Params
	format string
)

// Cmd represents the list command
var Cmd = &cobra.Command{
	Use:   "list",
	Short: "List records after filtering and sorting",
	Long: `List records after filtering and sorting.

The table format shows derived balances. The csv, json and yaml formats write
records in the same layout --from-file reads, so a listing can be edited and
loaded back.

Example:
  ledger-csv list --query ali --sort amount:desc --format yaml -o ali.yaml`,
	RunE: listFunc,
}

func init() {
	root.AddFilterFlags(Cmd, &params, true)
	Cmd.Flags().StringVar(&format, "format", "table", "Output format: table, csv, json or yaml")
}

func listFunc(cmd *cobra.Command, args []string) error {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = "table"
	}
	if err := validation.IsValidOutputFormat(f, "table", recordfile.FormatCSV, recordfile.FormatJSON, recordfile.FormatYAML); err != nil {
		return err
	}
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	filters, sortState, err := params.Parse()
	if err != nil {
		return err
	}

	records, err := root.LoadRecords(root.Context(cmd))
	if err != nil {
		return err
	}
	visible := c.GetPipeline().Apply(records, filters, sortState)

	var buf bytes.Buffer
	if f == "table" {
		err = c.GetReportGenerator().WriteRecordTable(&buf, ledger.Balances(visible), ledger.Totals(visible))
	} else {
		err = recordfile.Write(&buf, visible, f, c.GetConfig().DelimiterRune())
	}
	if err != nil {
		return err
	}
	return root.WriteOutput(cmd, buf.Bytes())
}
