package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/lineitems"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
)

// Amount decodes a money value sent either as a JSON number or as a string
// ("1500", "1 500 so'm"). Unparseable values decode as zero.
type Amount struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	a.Decimal = decimal.Zero
	if raw == "" || raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if d, err := currencyutils.ParseAmount(s); err == nil {
			a.Decimal = d
		}
		return nil
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		a.Decimal = d
	}
	return nil
}

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// FlexInt decodes an integer sent as a number or a numeric string.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil {
		*f = FlexInt(int(fl))
	}
	return nil
}

func (f *FlexInt) ptr() *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

func flexPtr(v *int) *FlexInt {
	if v == nil {
		return nil
	}
	f := FlexInt(*v)
	return &f
}

// FlexBool decodes true/false, 0/1 and their string forms.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`)) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

// FlexID decodes an identifier sent as a number or a string.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	*id = FlexID(strings.Trim(raw, `"`))
	return nil
}

// DebtDTO is the wire shape of a customer debt.
type DebtDTO struct {
	ID           FlexID          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Amount       Amount          `json:"amount"`
	PaidAmount   Amount          `json:"paid_amount"`
	ProductNames json.RawMessage `json:"product_names,omitempty"`
	BranchID     *FlexInt        `json:"branch_id,omitempty"`
	ShopID       FlexID          `json:"shop_id,omitempty"`
	IsReturned   FlexBool        `json:"isreturned"`
	Day          *FlexInt        `json:"day,omitempty"`
	Month        *FlexInt        `json:"month,omitempty"`
	Year         *FlexInt        `json:"year,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
	Note         string          `json:"note,omitempty"`
}

// ShipmentDTO is the wire shape of a wagon shipment.
type ShipmentDTO struct {
	ID           FlexID          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Amount       Amount          `json:"amount"`
	PaidAmount   Amount          `json:"paid_amount"`
	ProductNames json.RawMessage `json:"product_names,omitempty"`
	Indicator    *FlexInt        `json:"indicator,omitempty"`
	BranchID     *FlexInt        `json:"branch_id,omitempty"`
	ShopID       FlexID          `json:"shop_id,omitempty"`
	IsReturned   FlexBool        `json:"isreturned"`
	CreatedAt    string          `json:"created_at,omitempty"`
	Note         string          `json:"note,omitempty"`
}

func decodeProducts(raw json.RawMessage) lineitems.Decoded {
	if len(bytes.TrimSpace(raw)) == 0 {
		return lineitems.Decoded{}
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return lineitems.Decode(string(raw))
	}
	return lineitems.DecodeValue(v)
}

func encodeProducts(r models.LedgerRecord, itemFormat string) (json.RawMessage, error) {
	var s string
	switch {
	case len(r.LineItems) > 0:
		encode := lineitems.Encode
		if itemFormat == ItemFormatLegacy {
			encode = lineitems.EncodeLegacy
		}
		encoded, err := encode(r.LineItems)
		if err != nil {
			return nil, err
		}
		s = encoded
	case r.Legacy != "":
		s = r.Legacy
	default:
		return nil, nil
	}
	return json.Marshal(s)
}

// ToRecord converts a debt to a LedgerRecord. The total is server-supplied;
// line sums are used only when the server sent no amount.
func (d DebtDTO) ToRecord() models.LedgerRecord {
	products := decodeProducts(d.ProductNames)
	r := models.LedgerRecord{
		ID:           string(d.ID),
		Source:       models.SourceDebt,
		Counterparty: strings.TrimSpace(d.Name),
		LineItems:    products.Items,
		Legacy:       products.Legacy,
		TotalAmount:  d.Amount.Decimal,
		PaidAmount:   d.PaidAmount.Decimal,
		Kind:         models.KindFromFlag(d.BranchID.ptr()),
		Settled:      bool(d.IsReturned),
		BranchID:     d.BranchID.ptr(),
		ShopID:       string(d.ShopID),
		Note:         d.Note,
	}
	if r.TotalAmount.IsZero() && len(r.LineItems) > 0 {
		r.TotalAmount = models.SumLineTotals(r.LineItems)
	}
	if r.PaidAmount.IsZero() && len(r.LineItems) > 0 {
		r.PaidAmount = models.SumLinePaid(r.LineItems)
	}
	r.Date = debtDate(d)
	return r
}

func debtDate(d DebtDTO) time.Time {
	if d.Year != nil && d.Month != nil && d.Day != nil {
		if t, err := dateutils.CalendarDate(int(*d.Year), int(*d.Month), int(*d.Day)); err == nil {
			return t
		}
	}
	if d.CreatedAt != "" {
		if t, err := dateutils.ParseTimestamp(d.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ToRecord converts a shipment to a LedgerRecord. The total is the sum of
// line totals; the paid amount falls back to the sum of line payments.
func (s ShipmentDTO) ToRecord() models.LedgerRecord {
	products := decodeProducts(s.ProductNames)
	flag := s.Indicator
	if flag == nil {
		flag = s.BranchID
	}
	r := models.LedgerRecord{
		ID:           string(s.ID),
		Source:       models.SourceShipment,
		Counterparty: strings.TrimSpace(s.Name),
		LineItems:    products.Items,
		Legacy:       products.Legacy,
		TotalAmount:  s.Amount.Decimal,
		PaidAmount:   s.PaidAmount.Decimal,
		Kind:         models.KindFromFlag(flag.ptr()),
		Settled:      bool(s.IsReturned),
		BranchID:     s.BranchID.ptr(),
		ShopID:       string(s.ShopID),
		Note:         s.Note,
	}
	if len(r.LineItems) > 0 {
		r.TotalAmount = models.SumLineTotals(r.LineItems)
		if r.PaidAmount.IsZero() {
			r.PaidAmount = models.SumLinePaid(r.LineItems)
		}
	}
	if s.CreatedAt != "" {
		if t, err := dateutils.ParseTimestamp(s.CreatedAt); err == nil {
			r.Date = t
		}
	}
	return r
}

// DebtFromRecord builds the create/update body for a debt. itemFormat picks
// the product_names encoding (ItemFormatV2 or ItemFormatLegacy).
func DebtFromRecord(r models.LedgerRecord, shopID, itemFormat string) (DebtDTO, error) {
	products, err := encodeProducts(r, itemFormat)
	if err != nil {
		return DebtDTO{}, err
	}
	branch := r.BranchID
	if branch == nil {
		branch = r.Kind.Flag()
	}
	d := DebtDTO{
		ID:           FlexID(r.ID),
		Name:         strings.TrimSpace(r.Counterparty),
		Amount:       Amount{r.TotalAmount},
		PaidAmount:   Amount{r.PaidAmount},
		ProductNames: products,
		BranchID:     flexPtr(branch),
		ShopID:       FlexID(firstNonEmpty(r.ShopID, shopID)),
		IsReturned:   FlexBool(r.Settled),
		Note:         r.Note,
	}
	if r.HasDate() {
		y, m, dd := r.Date.Date()
		year, month, day := FlexInt(y), FlexInt(m), FlexInt(dd)
		d.Year, d.Month, d.Day = &year, &month, &day
	}
	return d, nil
}

// ShipmentFromRecord builds the create/update body for a shipment.
func ShipmentFromRecord(r models.LedgerRecord, shopID, itemFormat string) (ShipmentDTO, error) {
	products, err := encodeProducts(r, itemFormat)
	if err != nil {
		return ShipmentDTO{}, err
	}
	s := ShipmentDTO{
		ID:           FlexID(r.ID),
		Name:         strings.TrimSpace(r.Counterparty),
		Amount:       Amount{r.TotalAmount},
		PaidAmount:   Amount{r.PaidAmount},
		ProductNames: products,
		Indicator:    flexPtr(r.Kind.Flag()),
		BranchID:     flexPtr(r.BranchID),
		ShopID:       FlexID(firstNonEmpty(r.ShopID, shopID)),
		IsReturned:   FlexBool(r.Settled),
		Note:         r.Note,
	}
	if r.HasDate() {
		s.CreatedAt = r.Date.UTC().Format(time.RFC3339)
	}
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
