// Package serve runs the dashboard HTTP server
package serve

import (
	"context"
	"errors"
	"time"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/dashboard"
	"shopdesk/ledger-csv/internal/logging"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	addr     string
	interval time.Duration
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve summaries, records and statements over HTTP",
	Long: `Serve the dashboard API.

Routes:
  GET  /api/summaries?type=given|taken
  GET  /api/records?type=&counterparty=&q=&branch=&status=&from=&to=&sort=
  GET  /api/records/export.csv
  GET  /api/statement/:name
  POST /api/refresh`,
	Args: cobra.NoArgs,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default dashboard.addr)")
	Cmd.Flags().DurationVar(&interval, "refresh", 0, "Reload records on this interval (0 disables)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	cfg := c.GetConfig()
	if addr == "" {
		addr = cfg.Dashboard.Addr
	}

	server := dashboard.New(dashboard.Options{CORSOrigins: cfg.Dashboard.CORSOrigins},
		c.GetPipeline(), c.GetReportGenerator(), root.LoadRecords, c.GetLogger())

	ctx := root.Context(cmd)
	if err := server.Refresh(ctx); err != nil {
		return err
	}
	if interval > 0 {
		go refreshLoop(ctx, server, interval, c.GetLogger())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}

func refreshLoop(ctx context.Context, server *dashboard.Server, every time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := server.Refresh(ctx); err != nil {
				logger.WithError(err).Warn("Scheduled refresh failed")
			}
		}
	}
}
