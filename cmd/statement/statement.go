// Package statement handles printable statements
package statement

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/models"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/report"

	"github.com/spf13/cobra"
)

var (
	params   pipeline.Params
	recordID string
	source   string
	title    string
	now      = time.Now
)

// Cmd represents the statement command
var Cmd = &cobra.Command{
	Use:   "statement [counterparty]",
	Short: "Print a statement for a counterparty or a single record",
	Long: `Print a plain-text statement.

With a counterparty name the statement lists that party's records, oldest
first. With --id it details one record and its line items. Debts and
shipments are numbered separately, so pass --source when an id exists in both.

Example:
  ledger-csv statement "Ali"
  ledger-csv statement --id 42 --source shipment -o ali-42.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: statementFunc,
}

func init() {
	root.AddFilterFlags(Cmd, &params, false)
	Cmd.Flags().StringVar(&recordID, "id", "", "Print the statement for one record id")
	Cmd.Flags().StringVar(&source, "source", "", "Record source for --id: debt, shipment or finance")
	Cmd.Flags().StringVar(&title, "title", "", "Statement title")
}

func statementFunc(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && recordID == "" {
		return fmt.Errorf("a counterparty name or --id is required")
	}
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	p := params
	p.Sort = "date:asc"
	if len(args) == 1 {
		p.Counterparty = args[0]
	}
	filters, sortState, err := p.Parse()
	if err != nil {
		return err
	}

	records, err := root.LoadRecords(root.Context(cmd))
	if err != nil {
		return err
	}
	visible := c.GetPipeline().Apply(records, filters, sortState)

	heading := title
	var counterparty string
	if recordID != "" {
		r, err := byID(visible, recordID, source)
		if err != nil {
			return err
		}
		visible, counterparty = []models.LedgerRecord{r}, r.Counterparty
		if heading == "" {
			heading = "Record " + recordID
		}
	} else {
		summary, ok := ledger.Find(ledger.Aggregate(visible, models.TypeAll), args[0])
		if !ok {
			return fmt.Errorf("no records for %q", args[0])
		}
		counterparty = summary.Name
	}

	var buf bytes.Buffer
	err = c.GetReportGenerator().WriteStatement(&buf, report.StatementInput{
		Title:        heading,
		Counterparty: counterparty,
		Records:      ledger.Balances(visible),
		Totals:       ledger.Totals(visible),
		GeneratedAt:  now(),
	})
	if err != nil {
		return err
	}
	return root.WriteOutput(cmd, buf.Bytes())
}

// byID finds the record with id. Without a source the id must be unique
// across debts, shipments and finance rows.
func byID(records []models.LedgerRecord, id, src string) (models.LedgerRecord, error) {
	id = strings.TrimSpace(id)
	var matches []models.LedgerRecord
	for _, r := range records {
		if r.ID != id {
			continue
		}
		if strings.TrimSpace(src) != "" && r.Source != models.ParseSource(src) {
			continue
		}
		matches = append(matches, r)
	}
	switch len(matches) {
	case 0:
		return models.LedgerRecord{}, fmt.Errorf("record %q not found", id)
	case 1:
		return matches[0], nil
	default:
		sources := make([]string, len(matches))
		for i, r := range matches {
			sources[i] = string(r.Source)
		}
		return models.LedgerRecord{}, fmt.Errorf("record id %q is ambiguous (%s); pass --source",
			id, strings.Join(sources, ", "))
	}
}
