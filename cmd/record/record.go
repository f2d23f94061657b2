// Package record handles creating and updating debt and shipment records on
// the backend
package record

import (
	"fmt"
	"strings"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/backend"
	"shopdesk/ledger-csv/internal/currencyutils"
	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/ledger"
	"shopdesk/ledger-csv/internal/lineitems"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/spf13/cobra"
)

// AddFlags holds the flags of "record add".
type AddFlags struct {
	Source       string
	Counterparty string
	Products     string
	Total        string
	Paid         string
	Kind         string
	Date         string
	Note         string
}

var (
	addFlags  AddFlags
	payAmount string
)

// Cmd represents the record command
var Cmd = &cobra.Command{
	Use:   "record",
	Short: "Create, pay, settle or delete backend records",
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a debt or shipment record",
	Long: `Create a debt or shipment record on the backend.

Products use the name*quantity*price*paid format separated by '|'. When --total
is omitted it is the sum of the product lines.

Example:
  ledger-csv record add --counterparty Ali --products "Rice*2*15000|Oil*1*30000" --paid 10000`,
	Args: cobra.NoArgs,
	RunE: addFunc,
}

var payCmd = &cobra.Command{
	Use:   "pay <debt|shipment> <id>",
	Short: "Record a payment against a record",
	Args:  cobra.ExactArgs(2),
	RunE:  payFunc,
}

var settleCmd = &cobra.Command{
	Use:   "settle <debt|shipment> <id>",
	Short: "Mark a record as fully paid",
	Args:  cobra.ExactArgs(2),
	RunE:  settleFunc,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <debt|shipment> <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(2),
	RunE:  deleteFunc,
}

func init() {
	addCmd.Flags().StringVar(&addFlags.Source, "source", "debt", "Record type: debt or shipment")
	addCmd.Flags().StringVar(&addFlags.Counterparty, "counterparty", "", "Counterparty name")
	addCmd.Flags().StringVar(&addFlags.Products, "products", "", "Product lines")
	addCmd.Flags().StringVar(&addFlags.Total, "total", "", "Total amount (default: sum of product lines)")
	addCmd.Flags().StringVar(&addFlags.Paid, "paid", "", "Amount already paid")
	addCmd.Flags().StringVar(&addFlags.Kind, "kind", "given", "Ledger side: given or taken")
	addCmd.Flags().StringVar(&addFlags.Date, "date", "", "Record date (default today)")
	addCmd.Flags().StringVar(&addFlags.Note, "note", "", "Free-text note")
	_ = addCmd.MarkFlagRequired("counterparty")

	payCmd.Flags().StringVar(&payAmount, "amount", "", "Payment amount")
	_ = payCmd.MarkFlagRequired("amount")

	Cmd.AddCommand(addCmd, payCmd, settleCmd, deleteCmd)
}

// BuildRecord turns add flags into a record ready for the backend.
func BuildRecord(f AddFlags) (models.LedgerRecord, error) {
	source := models.ParseSource(f.Source)
	if source == models.SourceFinance {
		return models.LedgerRecord{}, fmt.Errorf("finance rows are managed with the finance command")
	}

	products := lineitems.Decode(f.Products)
	if len(products.Items) == 0 {
		if products.Legacy != "" {
			return models.LedgerRecord{}, fmt.Errorf("invalid --products %q: use name*quantity*price[*paid] separated by '|'", products.Legacy)
		}
		return models.LedgerRecord{}, fmt.Errorf("--products needs at least one line item")
	}
	r := models.LedgerRecord{
		Source:       source,
		Counterparty: strings.TrimSpace(f.Counterparty),
		LineItems:    products.Items,
		Legacy:       products.Legacy,
		Kind:         models.ParseKind(f.Kind),
		Note:         f.Note,
		TotalAmount:  models.SumLineTotals(products.Items),
		PaidAmount:   models.SumLinePaid(products.Items),
	}

	var err error
	if strings.TrimSpace(f.Total) != "" {
		if r.TotalAmount, err = currencyutils.ParseAmount(f.Total); err != nil {
			return models.LedgerRecord{}, fmt.Errorf("invalid --total: %w", err)
		}
	}
	if strings.TrimSpace(f.Paid) != "" {
		if r.PaidAmount, err = currencyutils.ParseAmount(f.Paid); err != nil {
			return models.LedgerRecord{}, fmt.Errorf("invalid --paid: %w", err)
		}
	}
	if strings.TrimSpace(f.Date) != "" {
		if r.Date, _, err = dateutils.ParseDate(f.Date); err != nil {
			return models.LedgerRecord{}, fmt.Errorf("invalid --date: %w", err)
		}
	}
	r.Settled = r.TotalAmount.IsPositive() && ledger.Remaining(r).IsZero()

	if err := backend.ValidateNewRecord(r); err != nil {
		return models.LedgerRecord{}, err
	}
	return r, nil
}

func client() (*backend.Client, error) {
	c, err := root.GetContainer()
	if err != nil {
		return nil, err
	}
	return c.Backend()
}

func addFunc(cmd *cobra.Command, args []string) error {
	r, err := BuildRecord(addFlags)
	if err != nil {
		return err
	}
	cl, err := client()
	if err != nil {
		return err
	}
	created, err := cl.CreateRecord(root.Context(cmd), r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s for %s\n", created.Source, created.ID, created.Counterparty)
	return nil
}

func findRecord(cmd *cobra.Command, cl *backend.Client, source, id string) (models.LedgerRecord, error) {
	ctx := root.Context(cmd)
	var (
		records []models.LedgerRecord
		err     error
	)
	switch models.ParseSource(source) {
	case models.SourceDebt:
		records, err = cl.ListDebts(ctx)
	case models.SourceShipment:
		records, err = cl.ListShipments(ctx)
	default:
		return models.LedgerRecord{}, fmt.Errorf("finance rows are managed with the finance command")
	}
	if err != nil {
		return models.LedgerRecord{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return models.LedgerRecord{}, fmt.Errorf("%s %q not found", source, id)
}

func payFunc(cmd *cobra.Command, args []string) error {
	amount, err := currencyutils.ParseAmount(payAmount)
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	cl, err := client()
	if err != nil {
		return err
	}
	r, err := findRecord(cmd, cl, args[0], args[1])
	if err != nil {
		return err
	}
	paid, err := ledger.ApplyPayment(r, amount)
	if err != nil {
		return err
	}
	updated, err := cl.UpdateRecord(root.Context(cmd), paid)
	if err != nil {
		return err
	}
	root.Log.Info("Payment recorded",
		logging.F(logging.FieldRecordID, updated.ID),
		logging.F(logging.FieldCounterparty, updated.Counterparty))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: remaining %s\n", updated.Source, updated.ID,
		currencyutils.FormatAmount(ledger.Remaining(updated), root.Currency()))
	return nil
}

func settleFunc(cmd *cobra.Command, args []string) error {
	cl, err := client()
	if err != nil {
		return err
	}
	r, err := findRecord(cmd, cl, args[0], args[1])
	if err != nil {
		return err
	}
	updated, err := cl.UpdateRecord(root.Context(cmd), ledger.Settle(r))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s settled\n", updated.Source, updated.ID)
	return nil
}

func deleteFunc(cmd *cobra.Command, args []string) error {
	cl, err := client()
	if err != nil {
		return err
	}
	source := models.ParseSource(args[0])
	if err := cl.DeleteRecord(root.Context(cmd), source, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s deleted\n", source, args[1])
	return nil
}
