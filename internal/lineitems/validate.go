package lineitems

import (
	"fmt"
	"strings"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/models"
)

// Validate checks a line-item list before it is sent to the backend: at least
// one item, every name non-empty, quantity > 0, price and paid ≥ 0, and paid
// never above the line total.
func Validate(items []models.LineItem) error {
	if len(items) == 0 {
		return &ledgererror.ValidationError{Field: "line_items", Reason: "at least one line item is required"}
	}
	for i, item := range items {
		field := fmt.Sprintf("line_items[%d]", i)
		switch {
		case strings.TrimSpace(item.Name) == "":
			return &ledgererror.ValidationError{Field: field, Reason: "name is required"}
		case !item.Quantity.IsPositive():
			return &ledgererror.ValidationError{Field: field, Reason: "quantity must be greater than zero"}
		case item.UnitPrice.IsNegative():
			return &ledgererror.ValidationError{Field: field, Reason: "unit price cannot be negative"}
		case item.PaidAmount.IsNegative():
			return &ledgererror.ValidationError{Field: field, Reason: "paid amount cannot be negative"}
		case item.PaidAmount.GreaterThan(item.LineTotal()):
			return &ledgererror.ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("paid %s exceeds line total %s", item.PaidAmount, item.LineTotal()),
				Err:    ledgererror.ErrOverpayment,
			}
		}
	}
	return nil
}
