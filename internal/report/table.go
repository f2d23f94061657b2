package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"shopdesk/ledger-csv/internal/models"
)

// WriteSummaryTable prints one aligned row per counterparty followed by the
// grand totals.
func (g *ReportGenerator) WriteSummaryTable(w io.Writer, summaries []models.CounterpartySummary, totals models.Totals) error {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Counterparty\tRecords\tOpen\tTotal\tPaid\tRemaining\tCredit\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
			s.Name,
			s.RecordCount,
			s.UnsettledCount,
			g.money(s.TotalAmount),
			g.money(s.PaidAmount),
			g.money(s.RemainingAmount),
			g.money(s.CreditAmount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	b.WriteString("\n")
	g.writeFooter(&b, totals)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteRecordTable prints one aligned row per record followed by the grand
// totals.
func (g *ReportGenerator) WriteRecordTable(w io.Writer, rows []models.RecordBalance, totals models.Totals) error {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDate\tCounterparty\tSide\tTotal\tPaid\tRemaining\tStatus\t")
	for _, rb := range rows {
		r := rb.Record
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.ID,
			g.dateOrDash(r.Date),
			r.Counterparty,
			r.Kind,
			g.money(r.TotalAmount),
			g.money(rb.Paid),
			g.money(rb.Remaining),
			StatusLabel(r.Settled))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	b.WriteString("\n")
	g.writeFooter(&b, totals)

	_, err := io.WriteString(w, b.String())
	return err
}
