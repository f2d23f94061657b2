package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shopdesk/ledger-csv/cmd/export"
	"shopdesk/ledger-csv/cmd/finance"
	"shopdesk/ledger-csv/cmd/list"
	"shopdesk/ledger-csv/cmd/record"
	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/cmd/serve"
	"shopdesk/ledger-csv/cmd/session"
	"shopdesk/ledger-csv/cmd/statement"
	"shopdesk/ledger-csv/cmd/summary"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(summary.Cmd)
	root.Cmd.AddCommand(list.Cmd)
	root.Cmd.AddCommand(export.Cmd)
	root.Cmd.AddCommand(statement.Cmd)
	root.Cmd.AddCommand(record.Cmd)
	root.Cmd.AddCommand(finance.Cmd)
	root.Cmd.AddCommand(session.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.Cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
