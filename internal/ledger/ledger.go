// Package ledger derives per-record and per-counterparty balances from a flat
// list of debt and shipment records.
//
// There is one definition of "remaining": the amount still owed on a record is
// its total minus what has effectively been paid. A settled record counts as
// fully paid. Over-payment never makes remaining negative; the excess is
// reported separately as credit. Settled/unsettled are tracked as counts only.
package ledger

import (
	"sort"

	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
)

// EffectivePaid is the portion of the record's total considered paid:
// the full total when settled, otherwise the paid amount clamped to [0, total].
func EffectivePaid(r models.LedgerRecord) decimal.Decimal {
	total := currencyutils.NonNegative(r.TotalAmount)
	if r.Settled {
		return total
	}
	return currencyutils.Clamp(r.PaidAmount, decimal.Zero, total)
}

// Remaining is total minus effective paid; never negative.
func Remaining(r models.LedgerRecord) decimal.Decimal {
	return currencyutils.NonNegative(r.TotalAmount).Sub(EffectivePaid(r))
}

// Credit is any amount paid beyond the record's total.
func Credit(r models.LedgerRecord) decimal.Decimal {
	return currencyutils.NonNegative(r.PaidAmount.Sub(currencyutils.NonNegative(r.TotalAmount)))
}

// Aggregate groups records by normalized counterparty name after applying the
// type partition, and returns one summary per party ordered by remaining
// amount, largest first. Ties keep first-seen order.
//
// Negative totals count as zero. The backend client, the record file reader
// and the finance conversion all refuse such records, so for any record set
// they produce a summary's TotalAmount is exactly the sum of its records'
// TotalAmount.
func Aggregate(records []models.LedgerRecord, typeFilter models.TypeFilter) []models.CounterpartySummary {
	summaries := make([]models.CounterpartySummary, 0)
	index := make(map[string]int)

	for _, r := range records {
		if !typeFilter.Matches(r.Kind) {
			continue
		}

		key := r.Key()
		i, ok := index[key]
		if !ok {
			i = len(summaries)
			index[key] = i
			summaries = append(summaries, models.CounterpartySummary{
				Name:            r.Counterparty,
				Key:             key,
				TotalAmount:     decimal.Zero,
				PaidAmount:      decimal.Zero,
				RemainingAmount: decimal.Zero,
				CreditAmount:    decimal.Zero,
			})
		}
		addRecord(&summaries[i], r)
	}

	sort.SliceStable(summaries, func(a, b int) bool {
		return summaries[a].RemainingAmount.GreaterThan(summaries[b].RemainingAmount)
	})

	return summaries
}

func addRecord(s *models.CounterpartySummary, r models.LedgerRecord) {
	total := currencyutils.NonNegative(r.TotalAmount)
	paid := EffectivePaid(r)

	s.RecordCount++
	s.TotalAmount = s.TotalAmount.Add(total)
	s.PaidAmount = s.PaidAmount.Add(paid)
	s.RemainingAmount = s.RemainingAmount.Add(total.Sub(paid))
	s.CreditAmount = s.CreditAmount.Add(Credit(r))
	if r.Settled {
		s.SettledCount++
	} else {
		s.UnsettledCount++
	}
	s.Records = append(s.Records, r)
}

// Totals computes the grand-total footer for a record set.
func Totals(records []models.LedgerRecord) models.Totals {
	t := models.Totals{
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
		CreditAmount:    decimal.Zero,
	}
	for _, r := range records {
		total := currencyutils.NonNegative(r.TotalAmount)
		paid := EffectivePaid(r)
		t.RecordCount++
		t.TotalAmount = t.TotalAmount.Add(total)
		t.PaidAmount = t.PaidAmount.Add(paid)
		t.RemainingAmount = t.RemainingAmount.Add(total.Sub(paid))
		t.CreditAmount = t.CreditAmount.Add(Credit(r))
	}
	return t
}

// Find returns the summary whose normalized name matches name.
func Find(summaries []models.CounterpartySummary, name string) (models.CounterpartySummary, bool) {
	key := models.NormalizeName(name)
	for _, s := range summaries {
		if s.Key == key {
			return s, true
		}
	}
	return models.CounterpartySummary{}, false
}

// Balances derives paid/remaining/credit for every record, preserving order.
func Balances(records []models.LedgerRecord) []models.RecordBalance {
	out := make([]models.RecordBalance, len(records))
	for i, r := range records {
		out[i] = Balance(r)
	}
	return out
}

// Balance derives paid/remaining/credit for a single record.
func Balance(r models.LedgerRecord) models.RecordBalance {
	return models.RecordBalance{
		Record:    r,
		Paid:      EffectivePaid(r),
		Remaining: Remaining(r),
		Credit:    Credit(r),
	}
}

// SummaryTotals adds up already aggregated summaries.
func SummaryTotals(summaries []models.CounterpartySummary) models.Totals {
	t := models.Totals{
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
		CreditAmount:    decimal.Zero,
	}
	for _, s := range summaries {
		t.RecordCount += s.RecordCount
		t.TotalAmount = t.TotalAmount.Add(s.TotalAmount)
		t.PaidAmount = t.PaidAmount.Add(s.PaidAmount)
		t.RemainingAmount = t.RemainingAmount.Add(s.RemainingAmount)
		t.CreditAmount = t.CreditAmount.Add(s.CreditAmount)
	}
	return t
}
