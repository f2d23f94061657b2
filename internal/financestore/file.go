package financestore

import (
	"context"
	"fmt"
	"sync"

	"shopdesk/ledger-csv/internal/fileutils"
	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"gopkg.in/yaml.v3"
)

// financeFile is the on-disk layout of a FileStore.
type financeFile struct {
	Records []models.PersonFinance `yaml:"records"`
}

// FileStore keeps finance records in a local YAML file.
type FileStore struct {
	path   string
	logger logging.Logger
	mu     sync.Mutex
}

// NewFileStore returns a FileStore backed by path ("~" is expanded). The
// file is created on first write.
func NewFileStore(path string, logger logging.Logger) *FileStore {
	return &FileStore{
		path:   fileutils.ExpandHome(path),
		logger: logger.WithFields(logging.F(logging.FieldComponent, "FinanceFileStore"), logging.F(logging.FieldDriver, DriverFile)),
	}
}

func (s *FileStore) load() ([]models.PersonFinance, error) {
	data, err := fileutils.ReadFileIfExists(s.path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []models.PersonFinance{}, nil
	}

	var file financeFile
	if err := yaml.Unmarshal(data, &file); err == nil && file.Records != nil {
		return file.Records, nil
	}

	// Accept a bare list as well as the records: wrapper.
	var records []models.PersonFinance
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("error parsing finance file %s: %w", s.path, err)
	}
	return records, nil
}

func (s *FileStore) store(records []models.PersonFinance) error {
	sortByName(records)
	data, err := yaml.Marshal(financeFile{Records: records})
	if err != nil {
		return fmt.Errorf("error marshaling finance records: %w", err)
	}
	if err := fileutils.WriteFileAtomic(s.path, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("error writing finance file: %w", err)
	}
	return nil
}

// List returns every record with derived amounts recomputed.
func (s *FileStore) List(_ context.Context) ([]models.PersonFinance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i] = Recompute(records[i])
	}
	s.logger.Debug("Loaded finance records", logging.F(logging.FieldCount, len(records)))
	return records, nil
}

// Save overwrites or creates the record for p.PersonName.
func (s *FileStore) Save(_ context.Context, p models.PersonFinance) (models.PersonFinance, error) {
	if err := Validate(p); err != nil {
		return models.PersonFinance{}, err
	}
	p = Recompute(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return models.PersonFinance{}, err
	}
	if i := find(records, p.PersonName); i >= 0 {
		records[i] = p
	} else {
		records = append(records, p)
	}
	if err := s.store(records); err != nil {
		return models.PersonFinance{}, err
	}
	s.logger.Info("Saved finance record", logging.F(logging.FieldCounterparty, p.PersonName))
	return p, nil
}

// AddPayment appends a payment to an existing person.
func (s *FileStore) AddPayment(_ context.Context, person string, payment models.Payment) (models.PersonFinance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return models.PersonFinance{}, err
	}
	i := find(records, person)
	if i < 0 {
		return models.PersonFinance{}, fmt.Errorf("person %q: %w", person, ledgererror.ErrNotFound)
	}
	updated, err := ApplyPayment(records[i], payment)
	if err != nil {
		return models.PersonFinance{}, err
	}
	records[i] = updated
	if err := s.store(records); err != nil {
		return models.PersonFinance{}, err
	}
	s.logger.Info("Added payment",
		logging.F(logging.FieldCounterparty, updated.PersonName),
		logging.F("amount", payment.Amount.String()))
	return updated, nil
}

// Delete removes a person's record.
func (s *FileStore) Delete(_ context.Context, person string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	i := find(records, person)
	if i < 0 {
		return fmt.Errorf("person %q: %w", person, ledgererror.ErrNotFound)
	}
	records = append(records[:i], records[i+1:]...)
	if err := s.store(records); err != nil {
		return err
	}
	s.logger.Info("Deleted finance record", logging.F(logging.FieldCounterparty, person))
	return nil
}
