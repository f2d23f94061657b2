package ledger

import (
	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
)

// ApplyPayment adds amount to the record's paid amount. Payments must be
// positive and may not exceed what remains; paying the remainder exactly
// marks the record settled.
func ApplyPayment(r models.LedgerRecord, amount decimal.Decimal) (models.LedgerRecord, error) {
	if !amount.IsPositive() {
		return models.LedgerRecord{}, &ledgererror.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if r.Settled {
		return models.LedgerRecord{}, &ledgererror.ValidationError{Field: "amount", Reason: "record is already settled", Err: ledgererror.ErrOverpayment}
	}
	remaining := Remaining(r)
	if amount.GreaterThan(remaining) {
		return models.LedgerRecord{}, &ledgererror.ValidationError{
			Field:  "amount",
			Reason: "exceeds remaining " + remaining.String(),
			Err:    ledgererror.ErrOverpayment,
		}
	}
	r.PaidAmount = EffectivePaid(r).Add(amount)
	r.Settled = Remaining(r).IsZero()
	return r, nil
}

// Settle marks the record fully paid.
func Settle(r models.LedgerRecord) models.LedgerRecord {
	r.PaidAmount = currencyutils.NonNegative(r.TotalAmount)
	r.Settled = true
	return r
}
