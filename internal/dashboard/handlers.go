package dashboard

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/models"
	"shopdesk/ledger-csv/internal/pipeline"
	"shopdesk/ledger-csv/internal/report"

	"github.com/gofiber/fiber/v2"
)

func queryParams(c *fiber.Ctx) pipeline.Params {
	return pipeline.Params{
		Type:         c.Query("type"),
		Counterparty: c.Query("counterparty"),
		Query:        c.Query("q"),
		BranchID:     c.Query("branch"),
		Status:       c.Query("status"),
		From:         c.Query("from"),
		To:           c.Query("to"),
		Sort:         c.Query("sort"),
	}
}

// GET /api/health
func (s *Server) health(c *fiber.Ctx) error {
	records, loadedAt := s.snapshot()
	body := fiber.Map{"status": "ok", "records": len(records)}
	if !loadedAt.IsZero() {
		body["loaded_at"] = loadedAt
	}
	return c.JSON(body)
}

// POST /api/refresh
func (s *Server) refresh(c *fiber.Ctx) error {
	if err := s.Refresh(c.UserContext()); err != nil {
		return err
	}
	records, loadedAt := s.snapshot()
	return c.JSON(fiber.Map{"records": len(records), "loaded_at": loadedAt})
}

// GET /api/summaries?type=given&status=...
func (s *Server) summaries(c *fiber.Ctx) error {
	filters, _, err := queryParams(c).Parse()
	if err != nil {
		return err
	}
	records, _ := s.snapshot()
	summaries := s.pipeline.Summaries(records, filters)
	return c.JSON(fiber.Map{"summaries": summaries, "totals": ledger.SummaryTotals(summaries)})
}

// GET /api/records?type=&counterparty=&q=&branch=&status=&from=&to=&sort=
func (s *Server) listRecords(c *fiber.Ctx) error {
	filters, sortState, err := queryParams(c).Parse()
	if err != nil {
		return err
	}
	records, _ := s.snapshot()
	return c.JSON(s.pipeline.Build(records, filters, sortState))
}

// GET /api/records/export.csv with the same filters as /api/records
func (s *Server) exportCSV(c *fiber.Ctx) error {
	filters, sortState, err := queryParams(c).Parse()
	if err != nil {
		return err
	}
	records, _ := s.snapshot()
	visible := s.pipeline.Apply(records, filters, sortState)

	var buf bytes.Buffer
	if err := s.generator.WriteRecordsCSV(&buf, ledger.Balances(visible)); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, report.ExportFilename("records", s.now())))
	return c.Send(buf.Bytes())
}

// GET /api/statement/:name?type=&from=&to=
func (s *Server) statement(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || strings.TrimSpace(name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid counterparty name")
	}
	params := queryParams(c)
	params.Counterparty = name
	if params.Sort == "" {
		params.Sort = "date:asc"
	}
	filters, sortState, err := params.Parse()
	if err != nil {
		return err
	}

	records, _ := s.snapshot()
	visible := s.pipeline.Apply(records, filters, sortState)
	summary, ok := ledger.Find(ledger.Aggregate(visible, models.TypeAll), name)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("no records for %q", name))
	}

	var buf bytes.Buffer
	err = s.generator.WriteStatement(&buf, report.StatementInput{
		Title:        "Statement",
		Counterparty: summary.Name,
		Records:      ledger.Balances(visible),
		Totals:       ledger.Totals(visible),
		GeneratedAt:  s.now(),
	})
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(buf.Bytes())
}
