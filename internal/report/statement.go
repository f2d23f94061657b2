package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
)

// StatementInput is everything a printable statement needs. Totals must come
// from the ledger package; the statement only prints them.
type StatementInput struct {
	Title        string
	Counterparty string
	Records      []models.RecordBalance
	Totals       models.Totals
	GeneratedAt  time.Time
}

// WriteStatement renders a plain-text statement for one record or for one
// counterparty's history. A single-record statement lists that record's line
// items; a history lists one row per record. Both end with a grand-total footer.
func (g *ReportGenerator) WriteStatement(w io.Writer, in StatementInput) error {
	var b strings.Builder

	title := in.Title
	if title == "" {
		title = "Statement"
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))) + "\n")
	if in.Counterparty != "" {
		fmt.Fprintf(&b, "Counterparty: %s\n", in.Counterparty)
	}
	if !in.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated:    %s\n", dateutils.FormatDate(in.GeneratedAt, g.opts.DateLayout))
	}
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	if len(in.Records) == 1 {
		g.writeRecordDetail(tw, in.Records[0])
	} else {
		g.writeHistory(tw, in.Records)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to render statement: %w", err)
	}

	b.WriteString("\n")
	g.writeFooter(&b, in.Totals)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}
	g.logger.Debug("Rendered statement",
		logging.F(logging.FieldCounterparty, in.Counterparty),
		logging.F(logging.FieldCount, len(in.Records)))
	return nil
}

func (g *ReportGenerator) writeRecordDetail(tw *tabwriter.Writer, rb models.RecordBalance) {
	r := rb.Record
	fmt.Fprintf(tw, "Record:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Date:\t%s\n", g.dateOrDash(r.Date))
	fmt.Fprintf(tw, "Side:\t%s\n", r.Kind)
	fmt.Fprintf(tw, "Status:\t%s\n", StatusLabel(r.Settled))
	fmt.Fprintln(tw)

	if len(r.LineItems) == 0 {
		if r.Legacy != "" {
			fmt.Fprintf(tw, "Products:\t%s\n", r.Legacy)
		}
		return
	}
	fmt.Fprintln(tw, "Product\tQty\tPrice\tLine total\tPaid\t")
	for _, item := range r.LineItems {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			item.Name,
			item.Quantity.String(),
			g.money(item.UnitPrice),
			g.money(item.LineTotal()),
			g.money(item.PaidAmount))
	}
}

func (g *ReportGenerator) writeHistory(tw *tabwriter.Writer, rows []models.RecordBalance) {
	fmt.Fprintln(tw, "Date\tSide\tProducts\tTotal\tPaid\tRemaining\tStatus\t")
	for _, rb := range rows {
		r := rb.Record
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			g.dateOrDash(r.Date),
			r.Kind,
			DescribeItems(r),
			g.money(r.TotalAmount),
			g.money(rb.Paid),
			g.money(rb.Remaining),
			StatusLabel(r.Settled))
	}
}

func (g *ReportGenerator) writeFooter(b *strings.Builder, t models.Totals) {
	fmt.Fprintf(b, "Total:     %s\n", g.money(t.TotalAmount))
	fmt.Fprintf(b, "Paid:      %s\n", g.money(t.PaidAmount))
	fmt.Fprintf(b, "Remaining: %s\n", g.money(t.RemainingAmount))
	if t.CreditAmount.IsPositive() {
		fmt.Fprintf(b, "Credit:    %s\n", g.money(t.CreditAmount))
	}
}

func (g *ReportGenerator) dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return dateutils.FormatDate(t, g.opts.DateLayout)
}

func (g *ReportGenerator) money(d decimal.Decimal) string {
	return currencyutils.FormatAmount(d, g.opts.Currency)
}
