package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

type recordRow struct {
	ID           string `csv:"ID"`
	Date         string `csv:"Date"`
	Counterparty string `csv:"Counterparty"`
	Side         string `csv:"Side"`
	Source       string `csv:"Source"`
	Products     string `csv:"Products"`
	Total        string `csv:"Total"`
	Paid         string `csv:"Paid"`
	Remaining    string `csv:"Remaining"`
	Credit       string `csv:"Credit"`
	Status       string `csv:"Status"`
}

type summaryRow struct {
	Counterparty string `csv:"Counterparty"`
	Records      int    `csv:"Records"`
	Settled      int    `csv:"Settled"`
	Open         int    `csv:"Open"`
	Total        string `csv:"Total"`
	Paid         string `csv:"Paid"`
	Remaining    string `csv:"Remaining"`
	Credit       string `csv:"Credit"`
}

// WriteRecordsCSV writes one row per record under a header of column labels.
func (g *ReportGenerator) WriteRecordsCSV(w io.Writer, rows []models.RecordBalance) error {
	out := make([]recordRow, len(rows))
	for i, rb := range rows {
		r := rb.Record
		out[i] = recordRow{
			ID:           r.ID,
			Date:         dateutils.FormatDate(r.Date, g.opts.DateLayout),
			Counterparty: r.Counterparty,
			Side:         string(r.Kind),
			Source:       string(r.Source),
			Products:     DescribeItems(r),
			Total:        fixed(r.TotalAmount),
			Paid:         fixed(rb.Paid),
			Remaining:    fixed(rb.Remaining),
			Credit:       fixed(rb.Credit),
			Status:       StatusLabel(r.Settled),
		}
	}
	return g.writeCSV(w, &out, len(out))
}

// WriteSummariesCSV writes one row per counterparty.
func (g *ReportGenerator) WriteSummariesCSV(w io.Writer, summaries []models.CounterpartySummary) error {
	out := make([]summaryRow, len(summaries))
	for i, s := range summaries {
		out[i] = summaryRow{
			Counterparty: s.Name,
			Records:      s.RecordCount,
			Settled:      s.SettledCount,
			Open:         s.UnsettledCount,
			Total:        fixed(s.TotalAmount),
			Paid:         fixed(s.PaidAmount),
			Remaining:    fixed(s.RemainingAmount),
			Credit:       fixed(s.CreditAmount),
		}
	}
	return g.writeCSV(w, &out, len(out))
}

// writeCSV marshals rows with gocsv. In quote-all mode the marshalled table is
// re-emitted with every field wrapped in double quotes, since encoding/csv
// only quotes fields that need it.
func (g *ReportGenerator) writeCSV(w io.Writer, rows interface{}, count int) error {
	var buf bytes.Buffer
	csvWriter := csv.NewWriter(&buf)
	csvWriter.Comma = g.opts.Delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		g.logger.WithError(err).Error("Failed to marshal CSV rows")
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("error flushing CSV data: %w", err)
	}

	if !g.opts.QuoteAll {
		_, err := w.Write(buf.Bytes())
		return err
	}

	reader := csv.NewReader(&buf)
	reader.Comma = g.opts.Delimiter
	table, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("error re-reading CSV data: %w", err)
	}
	if err := WriteQuoted(w, table, g.opts.Delimiter); err != nil {
		return err
	}

	g.logger.Debug("Wrote CSV report", logging.F(logging.FieldCount, count))
	return nil
}

// WriteQuoted writes table with every field wrapped in double quotes and
// internal quotes doubled.
func WriteQuoted(w io.Writer, table [][]string, delimiter rune) error {
	var b strings.Builder
	for _, row := range table {
		for i, field := range row {
			if i > 0 {
				b.WriteRune(delimiter)
			}
			b.WriteString(QuoteField(field))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// QuoteField wraps a value in double quotes, doubling embedded quotes.
func QuoteField(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// DescribeItems renders a record's products for humans:
// "Rice x2 @ 15000; Oil x1 @ 30000", or the legacy text when items were not parseable.
func DescribeItems(r models.LedgerRecord) string {
	if len(r.LineItems) == 0 {
		return r.Legacy
	}
	parts := make([]string, len(r.LineItems))
	for i, item := range r.LineItems {
		parts[i] = fmt.Sprintf("%s x%s @ %s", item.Name, item.Quantity.String(), item.UnitPrice.String())
	}
	return strings.Join(parts, "; ")
}

// StatusLabel is the human label for the settled flag.
func StatusLabel(settled bool) string {
	if settled {
		return "settled"
	}
	return "open"
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
