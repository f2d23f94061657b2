package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the side of the ledger a record sits on.
type Kind string

// ParseKind maps free text onto a Kind. Unknown values are treated as given.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindTaken:
		return KindTaken
	case KindNone:
		return KindNone
	default:
		return KindGiven
	}
}

// KindFromFlag maps the wire branch_id / indicator flag onto a Kind:
// 1 is taken, any other value is given, absent is none.
func KindFromFlag(flag *int) Kind {
	if flag == nil {
		return KindNone
	}
	if *flag == TakenBranchID {
		return KindTaken
	}
	return KindGiven
}

// Flag is the inverse of KindFromFlag.
func (k Kind) Flag() *int {
	var v int
	switch k {
	case KindTaken:
		v = TakenBranchID
	case KindNone:
		return nil
	}
	return &v
}

// Source tags where a LedgerRecord came from.
type Source string

// ParseSource maps free text onto a Source. "wagon" is the backend's name for
// a shipment; anything unrecognized is a debt.
func ParseSource(s string) Source {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceShipment, "wagon", "wagons":
		return SourceShipment
	case SourceFinance:
		return SourceFinance
	default:
		return SourceDebt
	}
}

// LedgerRecord unifies debts and shipments: a billable transaction with line
// items, a total and a paid/settled state.
type LedgerRecord struct {
	ID           string          `json:"id" yaml:"id"`
	Source       Source          `json:"source" yaml:"source"`
	Counterparty string          `json:"counterparty" yaml:"counterparty"`
	LineItems    []LineItem      `json:"line_items" yaml:"line_items"`
	Legacy       string          `json:"legacy,omitempty" yaml:"legacy,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount" yaml:"total_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount" yaml:"paid_amount"`
	Kind         Kind            `json:"kind" yaml:"kind"`
	Settled      bool            `json:"settled" yaml:"settled"`
	// Date is the normalized creation date; zero when the wire date was malformed.
	Date     time.Time `json:"date" yaml:"date"`
	BranchID *int      `json:"branch_id,omitempty" yaml:"branch_id,omitempty"`
	ShopID   string    `json:"shop_id,omitempty" yaml:"shop_id,omitempty"`
	Note     string    `json:"note,omitempty" yaml:"note,omitempty"`
}

// NormalizeName returns the grouping key: trimmed and lower-cased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Key returns the record's normalized counterparty name.
func (r LedgerRecord) Key() string {
	return NormalizeName(r.Counterparty)
}

// HasDate reports whether the record carries a parseable date.
func (r LedgerRecord) HasDate() bool {
	return !r.Date.IsZero()
}

// IsTaken reports whether the record sits on the taken side.
func (r LedgerRecord) IsTaken() bool {
	return r.Kind == KindTaken
}
