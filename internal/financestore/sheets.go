package financestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/fileutils"
	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetHeader is the first row of the finance sheet. Payments and wagons are
// stored as JSON in their own cells.
var sheetHeader = []interface{}{
	"person_name", "total_amount", "paid_amount", "remaining_amount", "indicator", "payments", "wagons",
}

const sheetColumns = "A:G"

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// SpreadsheetID accepts either a bare id or a full Google Sheets URL.
func SpreadsheetID(idOrURL string) (string, error) {
	idOrURL = strings.TrimSpace(idOrURL)
	if idOrURL == "" {
		return "", &ledgererror.ValidationError{Field: "finance.spreadsheet_id", Reason: "must not be empty"}
	}
	if !strings.Contains(idOrURL, "/") {
		return idOrURL, nil
	}
	matches := spreadsheetURLPattern.FindStringSubmatch(idOrURL)
	if len(matches) < 2 {
		return "", &ledgererror.ValidationError{Field: "finance.spreadsheet_id", Reason: "invalid Google Sheets URL format"}
	}
	return matches[1], nil
}

// SheetsStore keeps one row per person in a Google Sheet.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
	logger        logging.Logger
	mu            sync.Mutex
}

// NewSheetsStore authenticates with a service-account credentials file when
// one is given, otherwise with application default credentials.
func NewSheetsStore(ctx context.Context, spreadsheet, sheet, credentialsFile string, logger logging.Logger) (*SheetsStore, error) {
	const op = "NewSheetsStore"

	var opts []option.ClientOption
	if credentialsFile != "" {
		creds, err := os.ReadFile(fileutils.ExpandHome(credentialsFile))
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
		config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
		}
		opts = append(opts, option.WithHTTPClient(config.Client(ctx)))
	} else {
		client, err := google.DefaultClient(ctx, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("%s: no credentials available: %w", op, err)
		}
		opts = append(opts, option.WithHTTPClient(client))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}
	return NewSheetsStoreWithService(svc, spreadsheet, sheet, logger)
}

// NewSheetsStoreWithService wraps an existing sheets.Service.
func NewSheetsStoreWithService(svc *sheets.Service, spreadsheet, sheet string, logger logging.Logger) (*SheetsStore, error) {
	id, err := SpreadsheetID(spreadsheet)
	if err != nil {
		return nil, err
	}
	if sheet == "" {
		sheet = "Finance"
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: id,
		sheet:         sheet,
		logger: logger.WithFields(
			logging.F(logging.FieldComponent, "FinanceSheetsStore"),
			logging.F(logging.FieldDriver, DriverSheets)),
	}, nil
}

func (s *SheetsStore) rangeFor(cols string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(s.sheet, "'", "''"), cols)
}

// snapshot is the sheet as last read: every person with the 1-based row it
// lives on.
type snapshot struct {
	people     []models.PersonFinance
	rowNumbers []int
	hasHeader  bool
}

func (s *SheetsStore) read(ctx context.Context) (snapshot, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeFor(sheetColumns)).Context(ctx).Do()
	if err != nil {
		return snapshot{}, &ledgererror.TransportError{Op: "sheets.get", Err: err}
	}

	var snap snapshot
	for i, row := range resp.Values {
		if i == 0 && isHeader(row) {
			snap.hasHeader = true
			continue
		}
		p, ok := rowToPerson(row, s.logger)
		if !ok {
			continue
		}
		snap.people = append(snap.people, p)
		snap.rowNumbers = append(snap.rowNumbers, i+1)
	}
	return snap, nil
}

// List returns every person in the sheet.
func (s *SheetsStore) List(ctx context.Context) ([]models.PersonFinance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	people := snap.people
	if people == nil {
		people = []models.PersonFinance{}
	}
	s.logger.Debug("Fetched finance rows", logging.F(logging.FieldCount, len(people)))
	return people, nil
}

// Save overwrites the person's row, or appends one.
func (s *SheetsStore) Save(ctx context.Context, p models.PersonFinance) (models.PersonFinance, error) {
	if err := Validate(p); err != nil {
		return models.PersonFinance{}, err
	}
	p = Recompute(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		return models.PersonFinance{}, err
	}
	if err := s.writeRow(ctx, snap, p); err != nil {
		return models.PersonFinance{}, err
	}
	s.logger.Info("Saved finance row", logging.F(logging.FieldCounterparty, p.PersonName))
	return p, nil
}

// AddPayment appends a payment to the person's row.
func (s *SheetsStore) AddPayment(ctx context.Context, person string, payment models.Payment) (models.PersonFinance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		return models.PersonFinance{}, err
	}
	i := find(snap.people, person)
	if i < 0 {
		return models.PersonFinance{}, fmt.Errorf("person %q: %w", person, ledgererror.ErrNotFound)
	}
	updated, err := ApplyPayment(snap.people[i], payment)
	if err != nil {
		return models.PersonFinance{}, err
	}
	if err := s.writeRow(ctx, snap, updated); err != nil {
		return models.PersonFinance{}, err
	}
	s.logger.Info("Added payment", logging.F(logging.FieldCounterparty, updated.PersonName))
	return updated, nil
}

func (s *SheetsStore) writeRow(ctx context.Context, snap snapshot, p models.PersonFinance) error {
	row, err := personToRow(p)
	if err != nil {
		return err
	}
	values := &sheets.ValueRange{Values: [][]interface{}{row}}

	if i := find(snap.people, p.PersonName); i >= 0 {
		target := s.rangeFor(fmt.Sprintf("A%d:G%d", snap.rowNumbers[i], snap.rowNumbers[i]))
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, target, values).
			ValueInputOption("RAW").Context(ctx).Do()
	} else {
		if !snap.hasHeader && len(snap.people) == 0 {
			values.Values = append([][]interface{}{sheetHeader}, values.Values...)
		}
		_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeFor(sheetColumns), values).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	}
	if err != nil {
		return &ledgererror.TransportError{Op: "sheets.write", Err: err}
	}
	return nil
}

// Delete clears the person's row. The blank row is skipped by List.
func (s *SheetsStore) Delete(ctx context.Context, person string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		return err
	}
	i := find(snap.people, person)
	if i < 0 {
		return fmt.Errorf("person %q: %w", person, ledgererror.ErrNotFound)
	}
	target := s.rangeFor(fmt.Sprintf("A%d:G%d", snap.rowNumbers[i], snap.rowNumbers[i]))
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, target, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return &ledgererror.TransportError{Op: "sheets.clear", Err: err}
	}
	s.logger.Info("Deleted finance row", logging.F(logging.FieldCounterparty, person))
	return nil
}

func isHeader(row []interface{}) bool {
	return len(row) > 0 && strings.EqualFold(cell(row, 0), "person_name")
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func cellAmount(row []interface{}, i int) decimal.Decimal {
	s := cell(row, i)
	if s == "" {
		return decimal.Zero
	}
	d, err := currencyutils.ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// rowToPerson maps a sheet row onto a PersonFinance. Rows without a name are
// skipped; a malformed JSON cell is logged and decodes as an empty list.
func rowToPerson(row []interface{}, logger logging.Logger) (models.PersonFinance, bool) {
	name := cell(row, 0)
	if name == "" {
		return models.PersonFinance{}, false
	}
	w := personWire{
		PersonName:      name,
		TotalAmount:     cellAmount(row, 1),
		PaidAmount:      cellAmount(row, 2),
		RemainingAmount: cellAmount(row, 3),
		Indicator:       cell(row, 4),
	}
	if raw := cell(row, 5); raw != "" {
		if err := json.Unmarshal([]byte(raw), &w.Payments); err != nil {
			logger.WithError(err).Warn("Ignoring malformed payments cell",
				logging.F(logging.FieldCounterparty, name))
			w.Payments = nil
		}
	}
	if raw := cell(row, 6); raw != "" {
		if err := json.Unmarshal([]byte(raw), &w.Wagons); err != nil {
			logger.WithError(err).Warn("Ignoring malformed wagons cell",
				logging.F(logging.FieldCounterparty, name))
			w.Wagons = nil
		}
	}
	return fromWire(w), true
}

func personToRow(p models.PersonFinance) ([]interface{}, error) {
	w := toWire(p)
	payments, err := json.Marshal(w.Payments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payments: %w", err)
	}
	wagons, err := json.Marshal(w.Wagons)
	if err != nil {
		return nil, fmt.Errorf("failed to encode wagons: %w", err)
	}
	return []interface{}{
		w.PersonName,
		w.TotalAmount.String(),
		w.PaidAmount.String(),
		w.RemainingAmount.String(),
		w.Indicator,
		string(payments),
		string(wagons),
	}, nil
}
