// Package recordfile reads and writes ledger records as local JSON, YAML or
// CSV files, so every command can run against a snapshot instead of the
// backend.
package recordfile

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/lineitems"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Row is the flat file shape of a record. Amounts, dates and flags are text so
// hand-edited files can use any format the parsers accept.
type Row struct {
	ID           string `csv:"id" json:"id" yaml:"id"`
	Source       string `csv:"source" json:"source" yaml:"source"`
	Counterparty string `csv:"counterparty" json:"counterparty" yaml:"counterparty"`
	Products     string `csv:"products" json:"products" yaml:"products"`
	Total        string `csv:"total" json:"total" yaml:"total"`
	Paid         string `csv:"paid" json:"paid" yaml:"paid"`
	Kind         string `csv:"kind" json:"kind" yaml:"kind"`
	Settled      string `csv:"settled" json:"settled" yaml:"settled"`
	Date         string `csv:"date" json:"date" yaml:"date"`
	BranchID     string `csv:"branch_id" json:"branch_id,omitempty" yaml:"branch_id,omitempty"`
	ShopID       string `csv:"shop_id" json:"shop_id,omitempty" yaml:"shop_id,omitempty"`
	Note         string `csv:"note" json:"note,omitempty" yaml:"note,omitempty"`
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported record file extension: %q", filepath.Ext(path))
	}
}

// ReadFile loads records from path, choosing the format by extension.
func ReadFile(path string, delimiter rune, logger logging.Logger) ([]models.LedgerRecord, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening record file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	records, err := Read(file, format, delimiter)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded records from file",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, len(records)))
	return records, nil
}

// Read decodes records in the given format.
func Read(r io.Reader, format string, delimiter rune) ([]models.LedgerRecord, error) {
	var rows []Row
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&rows); err != nil && err != io.EOF {
			return nil, fmt.Errorf("error parsing JSON records: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&rows); err != nil && err != io.EOF {
			return nil, fmt.Errorf("error parsing YAML records: %w", err)
		}
	case FormatCSV:
		reader := csv.NewReader(r)
		if delimiter != 0 {
			reader.Comma = delimiter
		}
		reader.FieldsPerRecord = -1
		if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
			if err == gocsv.ErrEmptyCSVFile {
				return []models.LedgerRecord{}, nil
			}
			return nil, fmt.Errorf("error parsing CSV records: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported record format: %s", format)
	}

	records := make([]models.LedgerRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := row.Record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Record converts a Row. Products go through the line-item codec; a missing
// total is derived from the line items.
func (row Row) Record() (models.LedgerRecord, error) {
	products := lineitems.Decode(row.Products)
	r := models.LedgerRecord{
		ID:           strings.TrimSpace(row.ID),
		Source:       models.ParseSource(row.Source),
		Counterparty: strings.TrimSpace(row.Counterparty),
		LineItems:    products.Items,
		Legacy:       products.Legacy,
		Kind:         models.ParseKind(row.Kind),
		Settled:      parseBool(row.Settled),
		ShopID:       strings.TrimSpace(row.ShopID),
		Note:         row.Note,
	}
	if strings.TrimSpace(row.Kind) == "" {
		r.Kind = models.KindNone
	}

	var err error
	if r.TotalAmount, err = amountOr(row.Total, models.SumLineTotals(r.LineItems)); err != nil {
		return models.LedgerRecord{}, fmt.Errorf("invalid total %q: %w", row.Total, err)
	}
	if r.TotalAmount.IsNegative() {
		return models.LedgerRecord{}, &ledgererror.ValidationError{Field: "total", Reason: fmt.Sprintf("must not be negative, got %s", r.TotalAmount)}
	}
	if r.PaidAmount, err = amountOr(row.Paid, models.SumLinePaid(r.LineItems)); err != nil {
		return models.LedgerRecord{}, fmt.Errorf("invalid paid amount %q: %w", row.Paid, err)
	}
	if s := strings.TrimSpace(row.Date); s != "" {
		if t, err := dateutils.ParseTimestamp(s); err == nil {
			r.Date = t
		}
	}
	if s := strings.TrimSpace(row.BranchID); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return models.LedgerRecord{}, fmt.Errorf("invalid branch_id %q: %w", row.BranchID, err)
		}
		r.BranchID = &n
	}
	return r, nil
}

// FromRecord flattens a record into a Row. Products use the versioned
// line-item encoding; records with only legacy text keep it verbatim.
func FromRecord(r models.LedgerRecord) (Row, error) {
	row := Row{
		ID:           r.ID,
		Source:       string(r.Source),
		Counterparty: r.Counterparty,
		Products:     r.Legacy,
		Total:        r.TotalAmount.String(),
		Paid:         r.PaidAmount.String(),
		Kind:         string(r.Kind),
		Settled:      strconv.FormatBool(r.Settled),
		Date:         dateutils.ToISODate(r.Date),
		ShopID:       r.ShopID,
		Note:         r.Note,
	}
	if len(r.LineItems) > 0 {
		encoded, err := lineitems.Encode(r.LineItems)
		if err != nil {
			return Row{}, err
		}
		row.Products = encoded
	}
	if r.BranchID != nil {
		row.BranchID = strconv.Itoa(*r.BranchID)
	}
	return row, nil
}

// Write encodes records in the given format, readable back by Read.
func Write(w io.Writer, records []models.LedgerRecord, format string, delimiter rune) error {
	rows := make([]Row, len(records))
	for i, r := range records {
		row, err := FromRecord(r)
		if err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		rows[i] = row
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("error writing YAML records: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		var buf bytes.Buffer
		csvWriter := csv.NewWriter(&buf)
		if delimiter != 0 {
			csvWriter.Comma = delimiter
		}
		if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
			return fmt.Errorf("error writing CSV records: %w", err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("unsupported record format: %s", format)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "settled", "returned":
		return true
	}
	return false
}

func amountOr(s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return currencyutils.ParseAmount(s)
}
