package financestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopdesk/ledger-csv/internal/backend"
	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
)

// Actions understood by the spreadsheet endpoint.
const (
	actionGetRecords   = "getRecords"
	actionSaveRecord   = "saveRecord"
	actionAddPayment   = "addPayment"
	actionDeleteRecord = "deleteRecord"
)

// paymentWire and wagonWire carry dates as strings; spreadsheet scripts send
// either ISO dates or full timestamps.
type paymentWire struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Note   string          `json:"note,omitempty"`
}

type wagonWire struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
	Products string          `json:"products,omitempty"`
}

type personWire struct {
	PersonName      string          `json:"person_name"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Payments        []paymentWire   `json:"payments"`
	Wagons          []wagonWire     `json:"wagons"`
	Indicator       string          `json:"indicator"`
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

func wireDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseWireDate(s string) time.Time {
	if strings.TrimSpace(s) == "" {
		return time.Time{}
	}
	t, err := dateutils.ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toWire(p models.PersonFinance) personWire {
	w := personWire{
		PersonName:      p.PersonName,
		TotalAmount:     p.TotalAmount,
		PaidAmount:      p.PaidAmount,
		RemainingAmount: p.RemainingAmount,
		Payments:        make([]paymentWire, len(p.Payments)),
		Wagons:          make([]wagonWire, len(p.Wagons)),
		Indicator:       string(p.Indicator),
	}
	for i, pay := range p.Payments {
		w.Payments[i] = paymentWire{Amount: pay.Amount, Date: wireDate(pay.Date), Note: pay.Note}
	}
	for i, wg := range p.Wagons {
		w.Wagons[i] = wagonWire{Name: wg.Name, Amount: wg.Amount, Date: wireDate(wg.Date), Products: wg.Products}
	}
	return w
}

func fromWire(w personWire) models.PersonFinance {
	p := models.PersonFinance{
		PersonName:      w.PersonName,
		TotalAmount:     w.TotalAmount,
		PaidAmount:      w.PaidAmount,
		RemainingAmount: w.RemainingAmount,
		Payments:        make([]models.Payment, len(w.Payments)),
		Wagons:          make([]models.WagonEntry, len(w.Wagons)),
		Indicator:       models.ParseKind(w.Indicator),
	}
	for i, pay := range w.Payments {
		p.Payments[i] = models.Payment{Amount: pay.Amount, Date: parseWireDate(pay.Date), Note: pay.Note}
	}
	for i, wg := range w.Wagons {
		p.Wagons[i] = models.WagonEntry{Name: wg.Name, Amount: wg.Amount, Date: parseWireDate(wg.Date), Products: wg.Products}
	}
	return Recompute(p)
}

// HTTPStore talks to a single spreadsheet-script endpoint: GET
// ?action=getRecords and POST {action, ...payload}. Every response is
// {success, data?, message?}.
type HTTPStore struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   logging.Logger
}

// NewHTTPStore returns an HTTPStore for endpoint. A nil transport uses
// http.DefaultTransport.
func NewHTTPStore(endpoint string, timeout time.Duration, transport http.RoundTripper, logger logging.Logger) (*HTTPStore, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ledgererror.ValidationError{Field: "finance.url", Reason: "must be an absolute URL", Err: err}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger = logger.WithFields(logging.F(logging.FieldComponent, "FinanceHTTPStore"), logging.F(logging.FieldDriver, DriverHTTP))
	return &HTTPStore{
		endpoint: u.String(),
		client:   &http.Client{Transport: backend.Chain(transport, backend.LoggingMiddleware(logger))},
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// List fetches every record.
func (s *HTTPStore) List(ctx context.Context) ([]models.PersonFinance, error) {
	u, _ := url.Parse(s.endpoint)
	q := u.Query()
	q.Set("action", actionGetRecords)
	u.RawQuery = q.Encode()

	data, err := s.do(ctx, actionGetRecords, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var wire []personWire
	if len(bytes.TrimSpace(data)) > 0 && string(bytes.TrimSpace(data)) != "null" {
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%s: failed to decode records: %w", actionGetRecords, err)
		}
	}
	people := make([]models.PersonFinance, len(wire))
	for i, w := range wire {
		people[i] = fromWire(w)
	}
	s.logger.Debug("Fetched finance records", logging.F(logging.FieldCount, len(people)))
	return people, nil
}

// Save overwrites the record for p.PersonName.
func (s *HTTPStore) Save(ctx context.Context, p models.PersonFinance) (models.PersonFinance, error) {
	if err := Validate(p); err != nil {
		return models.PersonFinance{}, err
	}
	p = Recompute(p)

	payload := struct {
		Action string `json:"action"`
		personWire
	}{Action: actionSaveRecord, personWire: toWire(p)}
	if _, err := s.do(ctx, actionSaveRecord, http.MethodPost, s.endpoint, payload); err != nil {
		return models.PersonFinance{}, err
	}
	s.logger.Info("Saved finance record", logging.F(logging.FieldCounterparty, p.PersonName))
	return p, nil
}

// AddPayment appends a payment. The current record is read first so the
// payment can be checked against the remaining balance.
func (s *HTTPStore) AddPayment(ctx context.Context, person string, payment models.Payment) (models.PersonFinance, error) {
	people, err := s.List(ctx)
	if err != nil {
		return models.PersonFinance{}, err
	}
	i := find(people, person)
	if i < 0 {
		return models.PersonFinance{}, fmt.Errorf("person %q: %w", person, ledgererror.ErrNotFound)
	}
	updated, err := ApplyPayment(people[i], payment)
	if err != nil {
		return models.PersonFinance{}, err
	}
	added := updated.Payments[len(updated.Payments)-1]

	payload := struct {
		Action     string      `json:"action"`
		PersonName string      `json:"person_name"`
		Payment    paymentWire `json:"payment"`
	}{
		Action:     actionAddPayment,
		PersonName: people[i].PersonName,
		Payment:    paymentWire{Amount: added.Amount, Date: wireDate(added.Date), Note: added.Note},
	}
	if _, err := s.do(ctx, actionAddPayment, http.MethodPost, s.endpoint, payload); err != nil {
		return models.PersonFinance{}, err
	}
	s.logger.Info("Added payment", logging.F(logging.FieldCounterparty, updated.PersonName))
	return updated, nil
}

// Delete removes a person's record.
func (s *HTTPStore) Delete(ctx context.Context, person string) error {
	if strings.TrimSpace(person) == "" {
		return &ledgererror.ValidationError{Field: "person_name", Reason: "must not be empty"}
	}
	payload := map[string]string{"action": actionDeleteRecord, "person_name": strings.TrimSpace(person)}
	if _, err := s.do(ctx, actionDeleteRecord, http.MethodPost, s.endpoint, payload); err != nil {
		return err
	}
	s.logger.Info("Deleted finance record", logging.F(logging.FieldCounterparty, person))
	return nil
}

// do sends one request and returns the data field of a successful response.
func (s *HTTPStore) do(ctx context.Context, op, method, target string, payload interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ledgererror.TransportError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ledgererror.TransportError{Op: op, Err: err}
	}

	var r response
	decodeErr := json.Unmarshal(raw, &r)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := r.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &ledgererror.APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, decodeErr)
	}
	if !r.Success {
		if strings.Contains(strings.ToLower(r.Message), "not found") {
			return nil, fmt.Errorf("%s: %s: %w", op, r.Message, ledgererror.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: store reported failure: %s", op, r.Message)
	}
	return r.Data, nil
}
