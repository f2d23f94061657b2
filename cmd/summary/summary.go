// Package summary handles the per-counterparty balance command
package summary

import (
	"bytes"
	"strings"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/validation"

	"github.com/spf13/cobra"
)

var (
	params pipeline.Params
	format string
)

// Cmd represents the summary command
var Cmd = &cobra.Command{
	Use:   "summary",
	Short: "Show remaining balances per counterparty",
	Long: `Group records by counterparty and show totals, payments and what remains,
ordered by remaining balance.

Example:
  ledger-csv summary --type given --status unsettled`,
	RunE: summaryFunc,
}

func init() {
	root.AddFilterFlags(Cmd, &params, false)
	Cmd.Flags().StringVar(&format, "format", "table", "Output format: table, csv or json")
}

func summaryFunc(cmd *cobra.Command, args []string) error {
	f := outputFormat()
	if err := validation.IsValidOutputFormat(f, "table", "csv", "json"); err != nil {
		return err
	}
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	filters, _, err := params.Parse()
	if err != nil {
		return err
	}

	records, err := root.LoadRecords(root.Context(cmd))
	if err != nil {
		return err
	}
	summaries := c.GetPipeline().Summaries(records, filters)

	var buf bytes.Buffer
	gen := c.GetReportGenerator()
	if f == "table" {
		err = gen.WriteSummaryTable(&buf, summaries, ledger.SummaryTotals(summaries))
	} else {
		err = gen.GenerateSummaries(&buf, summaries, f)
	}
	if err != nil {
		return err
	}
	return root.WriteOutput(cmd, buf.Bytes())
}

func outputFormat() string {
	if f := strings.ToLower(strings.TrimSpace(format)); f != "" {
		return f
	}
	return "table"
}
