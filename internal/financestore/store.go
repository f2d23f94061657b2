// Package financestore keeps per-person finance records (wagons billed and
// payments received) in a spreadsheet-shaped key-value store keyed by person
// name. Three backends share one interface: an HTTP action endpoint, the
// Google Sheets API and a local YAML file.
package financestore

import (
	"context"
	"sort"
	"strings"
	"time"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
)

// Drivers accepted by the finance.driver setting.
const (
	DriverHTTP   = "http"
	DriverSheets = "sheets"
	DriverFile   = "file"
)

// Store is the finance persistence boundary. Person names are matched
// case-insensitively after trimming.
type Store interface {
	List(ctx context.Context) ([]models.PersonFinance, error)
	// Save overwrites (or creates) the record for p.PersonName.
	Save(ctx context.Context, p models.PersonFinance) (models.PersonFinance, error)
	// AddPayment appends a payment to an existing person.
	AddPayment(ctx context.Context, person string, payment models.Payment) (models.PersonFinance, error)
	Delete(ctx context.Context, person string) error
}

// Key normalizes a person name for lookups.
func Key(name string) string {
	return models.NormalizeName(name)
}

// Recompute derives the amounts from wagons and payments: total is the sum of
// wagon amounts when any wagons exist, paid is the sum of payments when any
// exist, and remaining is total − paid, never negative.
func Recompute(p models.PersonFinance) models.PersonFinance {
	p.PersonName = strings.TrimSpace(p.PersonName)
	if len(p.Wagons) > 0 {
		total := decimal.Zero
		for _, w := range p.Wagons {
			total = total.Add(w.Amount)
		}
		p.TotalAmount = total
	}
	if len(p.Payments) > 0 {
		paid := decimal.Zero
		for _, pay := range p.Payments {
			paid = paid.Add(pay.Amount)
		}
		p.PaidAmount = paid
	}
	p.RemainingAmount = p.TotalAmount.Sub(p.PaidAmount)
	if p.RemainingAmount.IsNegative() {
		p.RemainingAmount = decimal.Zero
	}
	if p.Indicator == "" {
		p.Indicator = models.KindGiven
	}
	return p
}

// Validate checks a record before it is saved.
func Validate(p models.PersonFinance) error {
	if strings.TrimSpace(p.PersonName) == "" {
		return &ledgererror.ValidationError{Field: "person_name", Reason: "must not be empty"}
	}
	if p.TotalAmount.IsNegative() {
		return &ledgererror.ValidationError{Field: "total_amount", Reason: "must not be negative"}
	}
	for _, w := range p.Wagons {
		if strings.TrimSpace(w.Name) == "" {
			return &ledgererror.ValidationError{Field: "wagons.name", Reason: "must not be empty"}
		}
		if w.Amount.IsNegative() {
			return &ledgererror.ValidationError{Field: "wagons.amount", Reason: "must not be negative"}
		}
	}
	for _, pay := range p.Payments {
		if !pay.Amount.IsPositive() {
			return &ledgererror.ValidationError{Field: "payments.amount", Reason: "must be positive"}
		}
	}
	return nil
}

// ValidatePayment checks a payment against the person's current balance.
func ValidatePayment(current models.PersonFinance, payment models.Payment) error {
	if !payment.Amount.IsPositive() {
		return &ledgererror.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	current = Recompute(current)
	if payment.Amount.GreaterThan(current.RemainingAmount) {
		return &ledgererror.ValidationError{
			Field:  "amount",
			Reason: "exceeds remaining " + current.RemainingAmount.String(),
			Err:    ledgererror.ErrOverpayment,
		}
	}
	return nil
}

// ApplyPayment validates payment and appends it to p.
func ApplyPayment(p models.PersonFinance, payment models.Payment) (models.PersonFinance, error) {
	if err := ValidatePayment(p, payment); err != nil {
		return models.PersonFinance{}, err
	}
	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC()
	}
	p.Payments = append(append([]models.Payment(nil), p.Payments...), payment)
	return Recompute(p), nil
}

// ToLedgerRecords turns finance rows into ledger records so they can be
// aggregated, filtered and reported like debts and shipments. Each wagon
// becomes a line item; the record date is the latest wagon or payment date.
// Rows with a negative total are left out.
func ToLedgerRecords(people []models.PersonFinance) []models.LedgerRecord {
	records := make([]models.LedgerRecord, 0, len(people))
	for _, p := range people {
		p = Recompute(p)
		if p.TotalAmount.IsNegative() {
			continue
		}
		items := make([]models.LineItem, 0, len(p.Wagons))
		var latest time.Time
		for _, w := range p.Wagons {
			items = append(items, models.LineItem{
				Name:       w.Name,
				Quantity:   decimal.NewFromInt(1),
				UnitPrice:  w.Amount,
				PaidAmount: decimal.Zero,
			})
			if w.Date.After(latest) {
				latest = w.Date
			}
		}
		for _, pay := range p.Payments {
			if pay.Date.After(latest) {
				latest = pay.Date
			}
		}
		records = append(records, models.LedgerRecord{
			ID:           Key(p.PersonName),
			Source:       models.SourceFinance,
			Counterparty: p.PersonName,
			LineItems:    items,
			TotalAmount:  p.TotalAmount,
			PaidAmount:   p.PaidAmount,
			Kind:         p.Indicator,
			Settled:      p.TotalAmount.IsPositive() && p.RemainingAmount.IsZero(),
			Date:         latest,
		})
	}
	return records
}

// Find returns the record for person, matched case-insensitively.
func Find(people []models.PersonFinance, person string) (models.PersonFinance, bool) {
	if i := find(people, person); i >= 0 {
		return people[i], true
	}
	return models.PersonFinance{}, false
}

// find returns the index of person in people, or -1.
func find(people []models.PersonFinance, person string) int {
	key := Key(person)
	for i, p := range people {
		if Key(p.PersonName) == key {
			return i
		}
	}
	return -1
}

func sortByName(people []models.PersonFinance) {
	sort.SliceStable(people, func(i, j int) bool {
		return Key(people[i].PersonName) < Key(people[j].PersonName)
	})
}
