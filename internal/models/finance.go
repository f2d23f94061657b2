package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PersonFinance is the per-person record kept by the spreadsheet-backed
// finance store. It is keyed by PersonName.
type PersonFinance struct {
	PersonName      string          `json:"person_name" yaml:"person_name"`
	TotalAmount     decimal.Decimal `json:"total_amount" yaml:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount" yaml:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount" yaml:"remaining_amount"`
	Payments        []Payment       `json:"payments" yaml:"payments"`
	Wagons          []WagonEntry    `json:"wagons" yaml:"wagons"`
	Indicator       Kind            `json:"indicator" yaml:"indicator"`
}

// Payment is one settlement against a person's balance.
type Payment struct {
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
	Date   time.Time       `json:"date" yaml:"date"`
	Note   string          `json:"note,omitempty" yaml:"note,omitempty"`
}

// WagonEntry is one shipment billed to a person.
type WagonEntry struct {
	Name     string          `json:"name" yaml:"name"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Date     time.Time       `json:"date" yaml:"date"`
	Products string          `json:"products,omitempty" yaml:"products,omitempty"`
}
