package pipeline

import (
	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/models"
)

// View is what a caller renders: the filtered, sorted records plus the
// per-party summaries and grand totals computed over exactly those records.
type View struct {
	Records   []models.LedgerRecord        `json:"records"`
	Summaries []models.CounterpartySummary `json:"summaries"`
	Totals    models.Totals                `json:"totals"`
}

// Build recomputes the whole view from scratch.
func (p *Pipeline) Build(records []models.LedgerRecord, filters models.FilterState, sortState models.SortState) View {
	visible := p.Apply(records, filters, sortState)
	return View{
		Records:   visible,
		Summaries: ledger.Aggregate(visible, models.TypeAll),
		Totals:    ledger.Totals(visible),
	}
}

// Summaries filters records and groups them by counterparty. The type
// partition is applied by the aggregator.
func (p *Pipeline) Summaries(records []models.LedgerRecord, filters models.FilterState) []models.CounterpartySummary {
	typeFilter := filters.Type
	filters.Type = models.TypeAll
	return ledger.Aggregate(Filter(records, filters), typeFilter)
}
