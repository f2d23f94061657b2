package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/lineitems"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"
)

// Tracker resources.
const (
	ResourceDebts     = "debts"
	ResourceShipments = "shipments"
)

// ListDebts fetches every debt. A response superseded by a newer ListDebts
// call returns ledgererror.ErrStaleResponse.
func (c *Client) ListDebts(ctx context.Context) ([]models.LedgerRecord, error) {
	const op = "ListDebts"
	ticket := c.tracker.Begin(ResourceDebts)

	body, err := c.get(ctx, op, c.endpoint(c.opts.DebtsPath))
	if err != nil {
		return nil, err
	}
	var dtos []DebtDTO
	if err := decodeList(op, body, &dtos); err != nil {
		return nil, err
	}
	if !c.tracker.Commit(ticket) {
		return nil, fmt.Errorf("%s: %w", op, ledgererror.ErrStaleResponse)
	}

	records := make([]models.LedgerRecord, len(dtos))
	for i, d := range dtos {
		records[i] = d.ToRecord()
	}
	records = c.dropNegativeTotals(op, records)
	c.logger.Debug("Fetched debts", logging.F(logging.FieldCount, len(records)))
	return records, nil
}

// ListShipments fetches every shipment, with the same stale-response guard
// as ListDebts.
func (c *Client) ListShipments(ctx context.Context) ([]models.LedgerRecord, error) {
	const op = "ListShipments"
	ticket := c.tracker.Begin(ResourceShipments)

	body, err := c.get(ctx, op, c.endpoint(c.opts.ShipmentsPath))
	if err != nil {
		return nil, err
	}
	var dtos []ShipmentDTO
	if err := decodeList(op, body, &dtos); err != nil {
		return nil, err
	}
	if !c.tracker.Commit(ticket) {
		return nil, fmt.Errorf("%s: %w", op, ledgererror.ErrStaleResponse)
	}

	records := make([]models.LedgerRecord, len(dtos))
	for i, s := range dtos {
		records[i] = s.ToRecord()
	}
	records = c.dropNegativeTotals(op, records)
	c.logger.Debug("Fetched shipments", logging.F(logging.FieldCount, len(records)))
	return records, nil
}

// dropNegativeTotals skips records the server sent with a negative total, so
// a counterparty total is always the plain sum of its record totals.
func (c *Client) dropNegativeTotals(op string, records []models.LedgerRecord) []models.LedgerRecord {
	kept := records[:0]
	for _, r := range records {
		if r.TotalAmount.IsNegative() {
			c.logger.Warn("Skipping record with negative total",
				logging.F(logging.FieldOperation, op),
				logging.F(logging.FieldRecordID, r.ID))
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// ListRecords fetches debts followed by shipments.
func (c *Client) ListRecords(ctx context.Context) ([]models.LedgerRecord, error) {
	debts, err := c.ListDebts(ctx)
	if err != nil {
		return nil, err
	}
	shipments, err := c.ListShipments(ctx)
	if err != nil {
		return nil, err
	}
	return append(debts, shipments...), nil
}

// CreateRecord validates and persists a new record, returning the echo the
// backend sends back.
func (c *Client) CreateRecord(ctx context.Context, r models.LedgerRecord) (models.LedgerRecord, error) {
	if err := ValidateNewRecord(r); err != nil {
		return models.LedgerRecord{}, err
	}
	r.ID = ""
	path, err := c.pathFor(r.Source)
	if err != nil {
		return models.LedgerRecord{}, err
	}
	return c.write(ctx, "CreateRecord", http.MethodPost, c.endpoint(path), r)
}

// UpdateRecord validates and overwrites an existing record. There is no
// version check; the last write wins.
func (c *Client) UpdateRecord(ctx context.Context, r models.LedgerRecord) (models.LedgerRecord, error) {
	if strings.TrimSpace(r.ID) == "" {
		return models.LedgerRecord{}, &ledgererror.ValidationError{Field: "id", Reason: "is required for update"}
	}
	if err := ValidateRecord(r); err != nil {
		return models.LedgerRecord{}, err
	}
	path, err := c.pathFor(r.Source)
	if err != nil {
		return models.LedgerRecord{}, err
	}
	return c.write(ctx, "UpdateRecord", http.MethodPut, c.endpoint(path, r.ID), r)
}

// DeleteRecord removes a record by id.
func (c *Client) DeleteRecord(ctx context.Context, source models.Source, id string) error {
	const op = "DeleteRecord"
	if strings.TrimSpace(id) == "" {
		return &ledgererror.ValidationError{Field: "id", Reason: "is required for delete"}
	}
	path, err := c.pathFor(source)
	if err != nil {
		return err
	}
	body, err := c.send(ctx, op, http.MethodDelete, c.endpoint(path, id), map[string]string{"id": id})
	if err != nil {
		return err
	}
	if err := decodeAck(op, body); err != nil {
		return err
	}
	c.logger.Info("Deleted record",
		logging.F(logging.FieldResource, string(source)),
		logging.F(logging.FieldRecordID, id))
	return nil
}

func (c *Client) write(ctx context.Context, op, method, target string, r models.LedgerRecord) (models.LedgerRecord, error) {
	var payload interface{}
	var err error
	switch r.Source {
	case models.SourceShipment:
		payload, err = ShipmentFromRecord(r, c.opts.ShopID, c.opts.ItemFormat)
	default:
		payload, err = DebtFromRecord(r, c.opts.ShopID, c.opts.ItemFormat)
	}
	if err != nil {
		return models.LedgerRecord{}, &ledgererror.ValidationError{Field: "line_items", Reason: err.Error(), Err: err}
	}

	body, err := c.send(ctx, op, method, target, payload)
	if err != nil {
		return models.LedgerRecord{}, err
	}

	var saved models.LedgerRecord
	switch r.Source {
	case models.SourceShipment:
		var dto ShipmentDTO
		if err := decodeOne(op, body, &dto); err != nil {
			return models.LedgerRecord{}, err
		}
		saved = dto.ToRecord()
	default:
		var dto DebtDTO
		if err := decodeOne(op, body, &dto); err != nil {
			return models.LedgerRecord{}, err
		}
		saved = dto.ToRecord()
	}
	if saved.ID == "" {
		saved.ID = r.ID
	}

	c.logger.Info("Saved record",
		logging.F(logging.FieldOperation, op),
		logging.F(logging.FieldResource, string(r.Source)),
		logging.F(logging.FieldRecordID, saved.ID))
	return saved, nil
}

func (c *Client) pathFor(source models.Source) (string, error) {
	switch source {
	case models.SourceDebt, "":
		return c.opts.DebtsPath, nil
	case models.SourceShipment:
		return c.opts.ShipmentsPath, nil
	default:
		return "", &ledgererror.ValidationError{Field: "source", Reason: fmt.Sprintf("unsupported source %q", source)}
	}
}

// ValidateNewRecord is ValidateRecord plus the creation rule that a record
// carries at least one valid line item. Opaque legacy product text does not
// count as an item.
func ValidateNewRecord(r models.LedgerRecord) error {
	if err := ValidateRecord(r); err != nil {
		return err
	}
	return lineitems.Validate(r.LineItems)
}

// ValidateRecord checks a record before it is sent: a counterparty name,
// non-negative amounts, paid not above total, and valid line items when any
// are present. Updates go through this check alone so records the backend
// already holds without items stay editable.
func ValidateRecord(r models.LedgerRecord) error {
	if strings.TrimSpace(r.Counterparty) == "" {
		return &ledgererror.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if r.TotalAmount.IsNegative() {
		return &ledgererror.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if r.PaidAmount.IsNegative() {
		return &ledgererror.ValidationError{Field: "paid_amount", Reason: "must not be negative"}
	}
	if r.PaidAmount.GreaterThan(r.TotalAmount) {
		return &ledgererror.ValidationError{Field: "paid_amount", Reason: "exceeds total", Err: ledgererror.ErrOverpayment}
	}
	if len(r.LineItems) > 0 {
		if err := lineitems.Validate(r.LineItems); err != nil {
			return err
		}
	}
	return nil
}
