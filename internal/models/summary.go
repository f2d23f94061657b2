package models

import "github.com/shopspring/decimal"

// CounterpartySummary is the derived per-party view over ledger records.
// RemainingAmount is always TotalAmount − PaidAmount summed per record.
type CounterpartySummary struct {
	Name            string          `json:"name"`
	Key             string          `json:"key"`
	RecordCount     int             `json:"record_count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	CreditAmount    decimal.Decimal `json:"credit_amount"`
	SettledCount    int             `json:"settled_count"`
	UnsettledCount  int             `json:"unsettled_count"`
	Records         []LedgerRecord  `json:"records"`
}

// Totals is a grand-total footer over a set of records.
type Totals struct {
	RecordCount     int             `json:"record_count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	CreditAmount    decimal.Decimal `json:"credit_amount"`
}

// RecordBalance pairs a record with its derived amounts so renderers never
// recompute them.
type RecordBalance struct {
	Record    LedgerRecord    `json:"record"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Credit    decimal.Decimal `json:"credit"`
}
