package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newGenerator(opts Options) *ReportGenerator {
	return NewReportGenerator(logging.NewMockLogger(), opts)
}

func sampleBalance() models.RecordBalance {
	r := models.LedgerRecord{
		ID:           "42",
		Source:       models.SourceShipment,
		Counterparty: `Ali, "Boss"`,
		LineItems: []models.LineItem{
			{Name: "Rice", Quantity: dec(2), UnitPrice: dec(15000), PaidAmount: dec(10000)},
			{Name: "Oil", Quantity: dec(1), UnitPrice: dec(30000), PaidAmount: decimal.Zero},
		},
		TotalAmount: dec(60000),
		PaidAmount:  dec(10000),
		Kind:        models.KindGiven,
		Date:        time.Date(2024, time.March, 7, 10, 30, 0, 0, time.UTC),
	}
	return models.RecordBalance{Record: r, Paid: dec(10000), Remaining: dec(50000), Credit: decimal.Zero}
}

func TestWriteRecordsCSV_QuoteAll(t *testing.T) {
	g := newGenerator(DefaultOptions)
	var buf bytes.Buffer

	require.NoError(t, g.WriteRecordsCSV(&buf, []models.RecordBalance{sampleBalance()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"ID","Date","Counterparty","Side","Source","Products","Total","Paid","Remaining","Credit","Status"`, lines[0])
	assert.Equal(t,
		`"42","2024-03-07","Ali, ""Boss""","given","shipment","Rice x2 @ 15000; Oil x1 @ 30000","60000.00","10000.00","50000.00","0.00","open"`,
		lines[1])
}

func TestWriteRecordsCSV_MinimalQuoting(t *testing.T) {
	g := newGenerator(Options{Delimiter: ',', QuoteAll: false})
	var buf bytes.Buffer

	plain := sampleBalance()
	plain.Record.Counterparty = "Vali"
	require.NoError(t, g.WriteRecordsCSV(&buf, []models.RecordBalance{sampleBalance(), plain}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Date,Counterparty,"))
	assert.Contains(t, lines[1], `,"Ali, ""Boss""",`)
	assert.Contains(t, lines[2], ",Vali,")
}

func TestWriteRecordsCSV_Delimiter(t *testing.T) {
	g := newGenerator(Options{Delimiter: ';', QuoteAll: true})
	var buf bytes.Buffer

	require.NoError(t, g.WriteRecordsCSV(&buf, []models.RecordBalance{sampleBalance()}))
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, `"ID";"Date";"Counterparty";"Side";"Source";"Products";"Total";"Paid";"Remaining";"Credit";"Status"`, header)
}

func TestWriteRecordsCSV_LegacyProductsAndEmpty(t *testing.T) {
	g := newGenerator(DefaultOptions)

	rb := sampleBalance()
	rb.Record.LineItems = nil
	rb.Record.Legacy = "old product text"
	var buf bytes.Buffer
	require.NoError(t, g.WriteRecordsCSV(&buf, []models.RecordBalance{rb}))
	assert.Contains(t, buf.String(), `"old product text"`)

	buf.Reset()
	require.NoError(t, g.WriteRecordsCSV(&buf, nil))
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(buf.String()), "\n")+1, "header only")
}

func TestWriteSummariesCSV(t *testing.T) {
	g := newGenerator(DefaultOptions)
	summaries := []models.CounterpartySummary{
		{
			Name: "Ali", Key: "ali", RecordCount: 2,
			TotalAmount: dec(1500), PaidAmount: dec(900), RemainingAmount: dec(600), CreditAmount: decimal.Zero,
			SettledCount: 1, UnsettledCount: 1,
		},
	}
	var buf bytes.Buffer

	require.NoError(t, g.WriteSummariesCSV(&buf, summaries))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"Counterparty","Records","Settled","Open","Total","Paid","Remaining","Credit"`, lines[0])
	assert.Equal(t, `"Ali","2","1","1","1500.00","900.00","600.00","0.00"`, lines[1])
}

func TestQuoteField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"plain", `"plain"`},
		{`Ali, "Boss"`, `"Ali, ""Boss"""`},
		{"line\nbreak", "\"line\nbreak\""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteField(tt.in))
	}
}

func TestGenerateRecords_Formats(t *testing.T) {
	g := newGenerator(DefaultOptions)
	rows := []models.RecordBalance{sampleBalance()}

	var jsonBuf bytes.Buffer
	require.NoError(t, g.GenerateRecords(&jsonBuf, rows, "JSON"))
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "50000", decoded[0]["remaining"])

	var csvBuf bytes.Buffer
	require.NoError(t, g.GenerateRecords(&csvBuf, rows, "csv"))
	assert.NotEmpty(t, csvBuf.String())

	err := g.GenerateRecords(&bytes.Buffer{}, rows, "xml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}

func TestGenerateSummaries_UnsupportedFormat(t *testing.T) {
	g := newGenerator(DefaultOptions)
	assert.Error(t, g.GenerateSummaries(&bytes.Buffer{}, nil, "pdf"))
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, time.January, 5, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "debts_2024-01-05.csv", ExportFilename("debts", now))
	assert.Equal(t, "export_2024-01-05.csv", ExportFilename("  ", now))
	assert.Equal(t, "ali_aka_2024-01-05.csv", ExportFilename("ali aka", now))
	assert.Equal(t, "a_b_2024-01-05.csv", ExportFilename("a/b", now))
}

func TestNewReportGenerator_Defaults(t *testing.T) {
	g := newGenerator(Options{})
	assert.Equal(t, ',', g.Options().Delimiter)
	assert.Equal(t, "2006-01-02", g.Options().DateLayout)
	assert.False(t, g.Options().QuoteAll)
}
