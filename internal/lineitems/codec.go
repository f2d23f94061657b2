// Package lineitems encodes and decodes the list of products packed into a
// ledger record's single free-text field (product_names on the wire).
//
// Two formats exist. The legacy format joins items with '|' and fields with
// '*' (name*quantity*unitPrice*paidAmount) and cannot carry those characters in
// names. The current format is a "v2:" prefix followed by a JSON array. Decode
// accepts both and never fails: malformed input degrades to defaults or to an
// opaque Legacy string.
package lineitems

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// VersionPrefix marks the structured encoding.
	VersionPrefix = "v2:"

	itemSeparator  = "|"
	fieldSeparator = "*"
)

// ErrReservedCharacter is returned by EncodeLegacy for names containing '|' or '*'.
var ErrReservedCharacter = errors.New("item name contains a reserved character ('|' or '*')")

// Decoded is the result of decoding a product field.
type Decoded struct {
	Items []models.LineItem
	// Legacy holds free text that carried no delimiters at all. It is for
	// display only and is never parsed into items.
	Legacy string
}

// IsEmpty reports whether nothing was decoded.
func (d Decoded) IsEmpty() bool {
	return len(d.Items) == 0 && d.Legacy == ""
}

type wireItem struct {
	Name     string          `json:"n"`
	Quantity decimal.Decimal `json:"q"`
	Price    decimal.Decimal `json:"p"`
	Paid     decimal.Decimal `json:"d"`
}

// Encode renders items in the versioned structured format.
func Encode(items []models.LineItem) (string, error) {
	wire := make([]wireItem, len(items))
	for i, item := range items {
		wire[i] = wireItem{Name: item.Name, Quantity: item.Quantity, Price: item.UnitPrice, Paid: item.PaidAmount}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to encode line items: %w", err)
	}
	return VersionPrefix + string(data), nil
}

// EncodeLegacy renders items as name*quantity*unitPrice*paidAmount joined by '|'.
func EncodeLegacy(items []models.LineItem) (string, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if strings.ContainsAny(item.Name, itemSeparator+fieldSeparator) {
			return "", fmt.Errorf("%w: %q", ErrReservedCharacter, item.Name)
		}
		parts = append(parts, strings.Join([]string{
			item.Name,
			item.Quantity.String(),
			item.UnitPrice.String(),
			item.PaidAmount.String(),
		}, fieldSeparator))
	}
	return strings.Join(parts, itemSeparator), nil
}

// DecodeValue decodes a raw JSON value from the wire: nil, a string, or an
// array whose first element is taken as the string.
func DecodeValue(v interface{}) Decoded {
	switch raw := v.(type) {
	case nil:
		return Decoded{}
	case string:
		return Decode(raw)
	case []string:
		if len(raw) == 0 {
			return Decoded{}
		}
		return Decode(raw[0])
	case []interface{}:
		if len(raw) == 0 {
			return Decoded{}
		}
		return DecodeValue(raw[0])
	case json.RawMessage:
		var inner interface{}
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Decoded{Legacy: strings.TrimSpace(string(raw))}
		}
		return DecodeValue(inner)
	default:
		return Decode(fmt.Sprint(raw))
	}
}

// Decode parses a product field string.
func Decode(raw string) Decoded {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Decoded{}
	}

	if strings.HasPrefix(trimmed, VersionPrefix) {
		if items, ok := decodeStructured(strings.TrimPrefix(trimmed, VersionPrefix)); ok {
			return Decoded{Items: items}
		}
		// A legacy item whose name happens to start with the prefix.
		if !strings.ContainsAny(trimmed, itemSeparator+fieldSeparator) {
			return Decoded{Legacy: trimmed}
		}
		return Decoded{Items: decodeLegacy(raw)}
	}

	if !strings.ContainsAny(trimmed, itemSeparator+fieldSeparator) {
		return Decoded{Legacy: trimmed}
	}

	return Decoded{Items: decodeLegacy(raw)}
}

func decodeStructured(payload string) ([]models.LineItem, bool) {
	var wire []wireItem
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, false
	}
	items := make([]models.LineItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, models.LineItem{
			Name:       w.Name,
			Quantity:   w.Quantity,
			UnitPrice:  w.Price,
			PaidAmount: w.Paid,
		})
	}
	return items, true
}

func decodeLegacy(raw string) []models.LineItem {
	var items []models.LineItem
	for _, segment := range strings.Split(raw, itemSeparator) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		fields := strings.Split(segment, fieldSeparator)
		item := models.LineItem{
			Name:       fields[0],
			Quantity:   numberAt(fields, 1, decimal.NewFromInt(1)),
			UnitPrice:  numberAt(fields, 2, decimal.Zero),
			PaidAmount: numberAt(fields, 3, decimal.Zero),
		}
		items = append(items, item)
	}
	return items
}

func numberAt(fields []string, idx int, fallback decimal.Decimal) decimal.Decimal {
	if idx >= len(fields) {
		return fallback
	}
	v, err := decimal.NewFromString(strings.TrimSpace(fields[idx]))
	if err != nil {
		return fallback
	}
	return v
}
