package models

import "github.com/shopspring/decimal"

// LineItem is one product line within a debt or shipment record.
type LineItem struct {
	Name       string          `json:"name" yaml:"name"`
	Quantity   decimal.Decimal `json:"quantity" yaml:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	PaidAmount decimal.Decimal `json:"paid_amount" yaml:"paid_amount"`
}

// LineTotal returns Quantity × UnitPrice.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Equal compares line items by value, ignoring decimal representation.
func (li LineItem) Equal(other LineItem) bool {
	return li.Name == other.Name &&
		li.Quantity.Equal(other.Quantity) &&
		li.UnitPrice.Equal(other.UnitPrice) &&
		li.PaidAmount.Equal(other.PaidAmount)
}

// SumLineTotals sums LineTotal across items.
func SumLineTotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// SumLinePaid sums PaidAmount across items.
func SumLinePaid(items []LineItem) decimal.Decimal {
	paid := decimal.Zero
	for _, item := range items {
		paid = paid.Add(item.PaidAmount)
	}
	return paid
}
