// Package finance handles the per-person finance store commands
package finance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/financestore"
	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/models"
	"shopdesk/ledger-csv/internal/validation"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	format    string
	person    string
	total     string
	paid      string
	indicator string
	amount    string
	date      string
	note      string
	wagon     string
	products  string
)

// Cmd represents the finance command
var Cmd = &cobra.Command{
	Use:   "finance",
	Short: "Manage per-person finance records",
	Long: `Manage per-person finance records kept in the configured finance store
(an HTTP action endpoint, a Google Sheet or a local YAML file).`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List finance records",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a person's totals",
	Args:  cobra.NoArgs,
	RunE:  saveFunc,
}

var wagonCmd = &cobra.Command{
	Use:   "add-wagon",
	Short: "Bill a wagon to a person",
	Args:  cobra.NoArgs,
	RunE:  wagonFunc,
}

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Record a payment from a person",
	Args:  cobra.NoArgs,
	RunE:  payFunc,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a person's record",
	Args:  cobra.NoArgs,
	RunE:  deleteFunc,
}

func init() {
	listCmd.Flags().StringVar(&format, "format", "table", "Output format: table, json or yaml")

	for _, c := range []*cobra.Command{saveCmd, wagonCmd, payCmd, deleteCmd} {
		c.Flags().StringVar(&person, "name", "", "Person name")
		_ = c.MarkFlagRequired("name")
	}
	saveCmd.Flags().StringVar(&total, "total", "", "Total amount (ignored when wagons exist)")
	saveCmd.Flags().StringVar(&paid, "paid", "", "Paid amount (ignored when payments exist)")
	saveCmd.Flags().StringVar(&indicator, "indicator", "", "Ledger side: given or taken")

	wagonCmd.Flags().StringVar(&wagon, "wagon", "", "Wagon name")
	wagonCmd.Flags().StringVar(&amount, "amount", "", "Wagon amount")
	wagonCmd.Flags().StringVar(&products, "products", "", "Products carried")
	wagonCmd.Flags().StringVar(&date, "date", "", "Wagon date (default today)")
	_ = wagonCmd.MarkFlagRequired("wagon")
	_ = wagonCmd.MarkFlagRequired("amount")

	payCmd.Flags().StringVar(&amount, "amount", "", "Payment amount")
	payCmd.Flags().StringVar(&date, "date", "", "Payment date (default today)")
	payCmd.Flags().StringVar(&note, "note", "", "Payment note")
	_ = payCmd.MarkFlagRequired("amount")

	Cmd.AddCommand(listCmd, saveCmd, wagonCmd, payCmd, deleteCmd)
}

func store(cmd *cobra.Command) (financestore.Store, error) {
	c, err := root.GetContainer()
	if err != nil {
		return nil, err
	}
	return c.FinanceStore(root.Context(cmd))
}

func listFunc(cmd *cobra.Command, args []string) error {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = "table"
	}
	if err := validation.IsValidOutputFormat(f, "table", "json", "yaml"); err != nil {
		return err
	}
	s, err := store(cmd)
	if err != nil {
		return err
	}
	people, err := s.List(root.Context(cmd))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch f {
	case "table":
		c, err := root.GetContainer()
		if err != nil {
			return err
		}
		records := financestore.ToLedgerRecords(people)
		err = c.GetReportGenerator().WriteRecordTable(&buf, ledger.Balances(records), ledger.Totals(records))
		if err != nil {
			return err
		}
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(people); err != nil {
			return err
		}
	case "yaml":
		if err := yaml.NewEncoder(&buf).Encode(people); err != nil {
			return err
		}
	}
	return root.WriteOutput(cmd, buf.Bytes())
}

// current returns the stored record for name, or a fresh one.
func current(cmd *cobra.Command, s financestore.Store, name string) (models.PersonFinance, error) {
	people, err := s.List(root.Context(cmd))
	if err != nil {
		return models.PersonFinance{}, err
	}
	if p, ok := financestore.Find(people, name); ok {
		return p, nil
	}
	return models.PersonFinance{PersonName: strings.TrimSpace(name), Indicator: models.KindGiven}, nil
}

func saveFunc(cmd *cobra.Command, args []string) error {
	s, err := store(cmd)
	if err != nil {
		return err
	}
	p, err := current(cmd, s, person)
	if err != nil {
		return err
	}
	if total != "" {
		if p.TotalAmount, err = currencyutils.ParseAmount(total); err != nil {
			return fmt.Errorf("invalid --total: %w", err)
		}
	}
	if paid != "" {
		if p.PaidAmount, err = currencyutils.ParseAmount(paid); err != nil {
			return fmt.Errorf("invalid --paid: %w", err)
		}
	}
	if indicator != "" {
		p.Indicator = models.ParseKind(indicator)
	}
	saved, err := s.Save(root.Context(cmd), p)
	if err != nil {
		return err
	}
	return printBalance(cmd, saved)
}

func wagonFunc(cmd *cobra.Command, args []string) error {
	wagonAmount, err := currencyutils.ParseAmount(amount)
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	entry := models.WagonEntry{Name: strings.TrimSpace(wagon), Amount: wagonAmount, Products: products}
	if entry.Date, err = parseDate(date); err != nil {
		return err
	}
	if entry.Date.IsZero() {
		entry.Date = dateutils.Day(time.Now().UTC())
	}

	s, err := store(cmd)
	if err != nil {
		return err
	}
	p, err := current(cmd, s, person)
	if err != nil {
		return err
	}
	p.Wagons = append(p.Wagons, entry)
	saved, err := s.Save(root.Context(cmd), financestore.Recompute(p))
	if err != nil {
		return err
	}
	return printBalance(cmd, saved)
}

func payFunc(cmd *cobra.Command, args []string) error {
	payment := models.Payment{Note: note}
	var err error
	if payment.Amount, err = currencyutils.ParseAmount(amount); err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	if payment.Date, err = parseDate(date); err != nil {
		return err
	}

	s, err := store(cmd)
	if err != nil {
		return err
	}
	updated, err := s.AddPayment(root.Context(cmd), person, payment)
	if err != nil {
		return err
	}
	return printBalance(cmd, updated)
}

func deleteFunc(cmd *cobra.Command, args []string) error {
	s, err := store(cmd)
	if err != nil {
		return err
	}
	if err := s.Delete(root.Context(cmd), person); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", strings.TrimSpace(person))
	return nil
}

func parseDate(s string) (t time.Time, err error) {
	if strings.TrimSpace(s) == "" {
		return t, nil
	}
	if t, _, err = dateutils.ParseDate(s); err != nil {
		return t, fmt.Errorf("invalid --date: %w", err)
	}
	return t, nil
}

func printBalance(cmd *cobra.Command, p models.PersonFinance) error {
	cur := root.Currency()
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: total %s, paid %s, remaining %s\n",
		p.PersonName,
		currencyutils.FormatAmount(p.TotalAmount, cur),
		currencyutils.FormatAmount(p.PaidAmount, cur),
		currencyutils.FormatAmount(p.RemainingAmount, cur))
	return err
}
