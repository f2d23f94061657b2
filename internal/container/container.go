// Package container provides dependency injection for the ledger-csv application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"shopdesk/ledger-csv/internal/backend"
	"shopdesk/ledger-csv/internal/config"
	"shopdesk/ledger-csv/internal/fileutils"
	"shopdesk/ledger-csv/internal/financestore"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/report"
	"shopdesk/ledger-csv/internal/session"
)

// ErrBackendNotConfigured is returned by Backend when no base URL is set.
var ErrBackendNotConfigured = errors.New("backend.base_url is not configured")

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation except for the finance store, which is
// opened on first use because the Sheets driver needs a context and credentials.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	session   *session.Store
	backend   *backend.Client
	pipeline  *pipeline.Pipeline
	generator *report.ReportGenerator

	financeMu sync.Mutex
	finance   financestore.Store
}

// NewContainer creates and wires all application dependencies.
// A missing backend base URL is not an error; commands that need the backend
// get ErrBackendNotConfigured from Backend.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	logger := config.ConfigureLoggingFromConfig(cfg)
	logger.SetOutput(os.Stderr)
	return NewContainerWithLogger(cfg, logging.NewLogrusAdapterFromLogger(logger))
}

// NewContainerWithLogger is NewContainer with an injected logger.
func NewContainerWithLogger(cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	sessions := session.NewStore(fileutils.ExpandHome(cfg.Session.File), logger)

	var client *backend.Client
	if cfg.Backend.BaseURL != "" {
		var err error
		client, err = backend.NewClient(backend.Options{
			BaseURL:       cfg.Backend.BaseURL,
			DebtsPath:     cfg.Backend.DebtsPath,
			ShipmentsPath: cfg.Backend.ShipmentsPath,
			ShopID:        cfg.Backend.ShopID,
			ItemFormat:    cfg.Backend.ItemFormat,
			Timeout:       cfg.BackendTimeout(),
			MaxRetries:    cfg.Backend.MaxRetries,
		}, sessions, session.ClearSessionPolicy{Store: sessions}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}
	}

	generator := report.NewReportGenerator(logger, report.Options{
		Delimiter:  cfg.DelimiterRune(),
		QuoteAll:   cfg.CSV.QuoteAll,
		DateLayout: cfg.CSV.DateFormat,
		Currency:   cfg.Report.Currency,
	})

	logger.Debug("Container initialized",
		logging.F("backend_configured", client != nil),
		logging.F(logging.FieldDriver, cfg.Finance.Driver))

	return &Container{
		logger:    logger,
		config:    cfg,
		session:   sessions,
		backend:   client,
		pipeline:  pipeline.New(cfg.Report.Locale),
		generator: generator,
	}, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetSession returns the session token store.
func (c *Container) GetSession() *session.Store {
	return c.session
}

// Backend returns the backend client, or ErrBackendNotConfigured.
func (c *Container) Backend() (*backend.Client, error) {
	if c.backend == nil {
		return nil, ErrBackendNotConfigured
	}
	return c.backend, nil
}

// GetPipeline returns the filter/sort pipeline for the configured locale.
func (c *Container) GetPipeline() *pipeline.Pipeline {
	return c.pipeline
}

// GetReportGenerator returns the report renderer.
func (c *Container) GetReportGenerator() *report.ReportGenerator {
	return c.generator
}

// FinanceStore opens the configured finance store on first call and caches it.
func (c *Container) FinanceStore(ctx context.Context) (financestore.Store, error) {
	c.financeMu.Lock()
	defer c.financeMu.Unlock()
	if c.finance != nil {
		return c.finance, nil
	}

	cfg := c.config.Finance
	var (
		store financestore.Store
		err   error
	)
	switch cfg.Driver {
	case config.FinanceDriverHTTP:
		store, err = financestore.NewHTTPStore(cfg.URL, c.config.BackendTimeout(), nil, c.logger)
	case config.FinanceDriverSheets:
		store, err = financestore.NewSheetsStore(ctx, cfg.SpreadsheetID, cfg.Sheet,
			fileutils.ExpandHome(cfg.CredentialsFile), c.logger)
	case config.FinanceDriverFile:
		store = financestore.NewFileStore(fileutils.ExpandHome(cfg.File), c.logger)
	default:
		err = fmt.Errorf("unknown finance driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open finance store: %w", err)
	}

	c.logger.Debug("Finance store opened", logging.F(logging.FieldDriver, cfg.Driver))
	c.finance = store
	return store, nil
}

// SetFinanceStore replaces the finance store, mainly for tests.
func (c *Container) SetFinanceStore(store financestore.Store) {
	c.financeMu.Lock()
	defer c.financeMu.Unlock()
	c.finance = store
}

// Close performs cleanup of container resources.
func (c *Container) Close() error {
	c.logger.Debug("Container closed")
	return nil
}
