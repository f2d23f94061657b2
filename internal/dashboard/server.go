// Package dashboard serves the ledger views over HTTP as JSON, CSV and plain
// text. It keeps one in-memory snapshot of records that Refresh replaces.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/report"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Loader fetches the full record list the dashboard serves.
type Loader func(ctx context.Context) ([]models.LedgerRecord, error)

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	// Now overrides the clock used for export file names and statements.
	Now func() time.Time
}

// Server is the dashboard HTTP application.
type Server struct {
	app       *fiber.App
	logger    logging.Logger
	pipeline  *pipeline.Pipeline
	generator *report.ReportGenerator
	load      Loader
	now       func() time.Time

	mu       sync.RWMutex
	records  []models.LedgerRecord
	loadedAt time.Time
}

// New builds the server and registers its routes. No data is loaded until
// Refresh is called.
func New(opts Options, p *pipeline.Pipeline, g *report.ReportGenerator, load Loader, logger logging.Logger) *Server {
	s := &Server{
		logger:    logger.WithField(logging.FieldComponent, "Dashboard"),
		pipeline:  p,
		generator: g,
		load:      load,
		now:       opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	if origins := cleanOrigins(opts.CORSOrigins); origins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowHeaders: "Origin, Content-Type, Accept",
			AllowMethods: "GET,POST,OPTIONS",
		}))
	}

	api := s.app.Group("/api")
	api.Get("/health", s.health)
	api.Post("/refresh", s.refresh)
	api.Get("/summaries", s.summaries)
	api.Get("/records", s.listRecords)
	api.Get("/records/export.csv", s.exportCSV)
	api.Get("/statement/:name", s.statement)

	return s
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Dashboard listening", logging.F("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Refresh replaces the snapshot with freshly loaded records. On failure the
// previous snapshot is kept. A load superseded by a newer one leaves the
// snapshot to that newer load and is not an error.
func (s *Server) Refresh(ctx context.Context) error {
	records, err := s.load(ctx)
	if errors.Is(err, ledgererror.ErrStaleResponse) {
		s.logger.Debug("Dashboard refresh superseded by a newer load")
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Warn("Dashboard refresh failed")
		return err
	}

	s.mu.Lock()
	s.records = records
	s.loadedAt = s.now()
	s.mu.Unlock()

	s.logger.Info("Dashboard snapshot refreshed", logging.F(logging.FieldCount, len(records)))
	return nil
}

// snapshot returns the current records. The slice is shared and must not be
// modified; the pipeline never mutates its input.
func (s *Server) snapshot() ([]models.LedgerRecord, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records, s.loadedAt
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	var verr *ledgererror.ValidationError
	var apiErr *ledgererror.APIError
	switch {
	case errors.As(err, &fe):
		status, message = fe.Code, fe.Message
	case errors.As(err, &verr):
		status, message = fiber.StatusBadRequest, verr.Error()
	case errors.Is(err, ledgererror.ErrUnauthorized):
		status, message = fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, ledgererror.ErrNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, ledgererror.ErrStaleResponse):
		status, message = fiber.StatusConflict, err.Error()
	case errors.As(err, &apiErr), ledgererror.IsRetryable(err):
		status, message = fiber.StatusBadGateway, err.Error()
	default:
		s.logger.WithError(err).Error("Unexpected dashboard error", logging.F(logging.FieldURL, c.OriginalURL()))
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func cleanOrigins(origins []string) string {
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	return strings.Join(cleaned, ",")
}
