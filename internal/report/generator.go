// Package report renders already-computed ledger views: CSV exports and
// printable statements. It never derives balances itself; every amount it
// prints comes from the ledger package.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"
)

// Options controls rendering.
type Options struct {
	Delimiter  rune
	QuoteAll   bool
	DateLayout string
	Currency   string
}

// DefaultOptions quotes every field, separates with commas and prints ISO dates.
var DefaultOptions = Options{
	Delimiter:  ',',
	QuoteAll:   true,
	DateLayout: dateutils.DateLayoutISO,
}

// ReportGenerator renders ledger views in the supported formats.
type ReportGenerator struct {
	logger logging.Logger
	opts   Options
}

// NewReportGenerator creates a ReportGenerator. Zero option fields take defaults.
func NewReportGenerator(logger logging.Logger, opts Options) *ReportGenerator {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultOptions.Delimiter
	}
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultOptions.DateLayout
	}
	return &ReportGenerator{
		logger: logger.WithField(logging.FieldComponent, "ReportGenerator"),
		opts:   opts,
	}
}

// Options returns the effective rendering options.
func (g *ReportGenerator) Options() Options {
	return g.opts
}

// GenerateRecords renders record balances as "csv" or "json".
func (g *ReportGenerator) GenerateRecords(w io.Writer, rows []models.RecordBalance, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		return g.WriteRecordsCSV(w, rows)
	case "json":
		return g.writeJSON(w, rows)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// GenerateSummaries renders counterparty summaries as "csv" or "json".
func (g *ReportGenerator) GenerateSummaries(w io.Writer, summaries []models.CounterpartySummary, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		return g.WriteSummariesCSV(w, summaries)
	case "json":
		return g.writeJSON(w, summaries)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *ReportGenerator) writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return nil
}

// ExportFilename returns <entity>_<YYYY-MM-DD>.csv.
func ExportFilename(entity string, now time.Time) string {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		entity = "export"
	}
	return fmt.Sprintf("%s_%s.csv", sanitizeFilename(entity), dateutils.ToISODate(now))
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
