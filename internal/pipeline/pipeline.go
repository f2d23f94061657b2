// Package pipeline turns a raw record list into the view a caller renders:
// a chain of AND-ed filters followed by a stable sort.
package pipeline

import (
	"sort"
	"strings"

	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Pipeline applies filters and sorting. The zero value is not usable; build
// one with New.
type Pipeline struct {
	tag language.Tag
}

// New returns a Pipeline that compares names using the collation rules of
// locale (a BCP 47 tag such as "uz", "ru" or "en"). Unknown tags fall back to
// the root collation.
func New(locale string) *Pipeline {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Pipeline{tag: tag}
}

// Apply filters then sorts records. The input slice is never modified.
func (p *Pipeline) Apply(records []models.LedgerRecord, filters models.FilterState, sortState models.SortState) []models.LedgerRecord {
	out := Filter(records, filters)
	p.Sort(out, sortState)
	return out
}

// Filter keeps the records that pass every predicate in filters, in order:
// type, counterparty, query, branch, status, date range.
func Filter(records []models.LedgerRecord, f models.FilterState) []models.LedgerRecord {
	counterparty := models.NormalizeName(f.Counterparty)
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.LedgerRecord, 0, len(records))
	for _, r := range records {
		if !f.Type.Matches(r.Kind) {
			continue
		}
		if counterparty != "" && r.Key() != counterparty {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.Counterparty), query) {
			continue
		}
		if f.BranchID != nil && (r.BranchID == nil || *r.BranchID != *f.BranchID) {
			continue
		}
		if !matchesStatus(f.Status, r.Settled) {
			continue
		}
		if f.HasDateRange() && (!r.HasDate() || !dateutils.InRange(r.Date, *f.From, *f.To)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesStatus(status models.StatusFilter, settled bool) bool {
	switch status {
	case models.StatusSettled:
		return settled
	case models.StatusUnsettled:
		return !settled
	default:
		return true
	}
}

// Sort orders records in place with a stable comparator. Records without a
// date always sort after dated ones when ordering by date, in either direction.
func (p *Pipeline) Sort(records []models.LedgerRecord, s models.SortState) {
	if s.Key == "" {
		return
	}
	sign := 1
	if s.Direction == models.Desc {
		sign = -1
	}

	var cmp func(a, b models.LedgerRecord) int
	switch s.Key {
	case models.SortByName:
		collator := collate.New(p.tag, collate.IgnoreCase)
		cmp = func(a, b models.LedgerRecord) int {
			return collator.CompareString(a.Counterparty, b.Counterparty)
		}
	case models.SortByAmount:
		cmp = func(a, b models.LedgerRecord) int {
			return a.TotalAmount.Cmp(b.TotalAmount)
		}
	case models.SortBySettled:
		cmp = func(a, b models.LedgerRecord) int {
			return boolToInt(a.Settled) - boolToInt(b.Settled)
		}
	case models.SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i], records[j]
			if a.HasDate() != b.HasDate() {
				return a.HasDate()
			}
			return sign*compareTime(a, b) < 0
		})
		return
	default:
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		return sign*cmp(records[i], records[j]) < 0
	})
}

func compareTime(a, b models.LedgerRecord) int {
	switch {
	case a.Date.Before(b.Date):
		return -1
	case a.Date.After(b.Date):
		return 1
	}
	return 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
