// Package export handles CSV report export
package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/report"

	"github.com/spf13/cobra"
)

var (
	params pipeline.Params
	dir    string
	now    = time.Now
)

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export [records|summaries]",
	Short: "Export records or summaries as a CSV report",
	Long: `Export the filtered view as a CSV report.

Without --output the file is named <entity>_<YYYY-MM-DD>.csv and written to --dir.

Example:
  ledger-csv export records --type taken --dir reports/`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"records", "summaries"},
	RunE:      exportFunc,
}

func init() {
	root.AddFilterFlags(Cmd, &params, true)
	Cmd.Flags().StringVar(&dir, "dir", ".", "Directory for the generated file name when --output is not set")
}

func exportFunc(cmd *cobra.Command, args []string) error {
	entity := "records"
	if len(args) == 1 {
		entity = args[0]
	}
	if entity != "records" && entity != "summaries" {
		return fmt.Errorf("unknown export entity %q (want records or summaries)", entity)
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

	var buf bytes.Buffer
	gen := c.GetReportGenerator()
	if entity == "summaries" {
		err = gen.WriteSummariesCSV(&buf, c.GetPipeline().Summaries(records, filters))
	} else {
		visible := c.GetPipeline().Apply(records, filters, sortState)
		err = gen.WriteRecordsCSV(&buf, ledger.Balances(visible))
	}
	if err != nil {
		return err
	}

	return root.WriteOutputOr(cmd, buf.Bytes(), filepath.Join(dir, report.ExportFilename(entity, now())))
}
