package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/internal/invoice"
)

var (
	exportFlags chargeFlags
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export [deliveries|restocks|customers|charges]",
	Short: "Export a table as an .xlsx workbook",
	Long: `Writes stored records, or the charge ledger of a customer, to a spreadsheet.
The charges table takes the same --customer, --start, --end and --balance flags
as the charges command.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"deliveries", "restocks", "customers", "charges"},
	RunE:      runExport,
}

func init() {
	exportFlags.bind(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default: <table>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	var table invoice.Table
	switch args[0] {
	case "deliveries":
		rows, err := a.db.ListDeliveries(ctx)
		if err != nil {
			return fmt.Errorf("listing deliveries: %w", err)
		}
		table = invoice.DeliveryTable(rows)
	case "restocks":
		rows, err := a.db.ListRestocks(ctx)
		if err != nil {
			return fmt.Errorf("listing restocks: %w", err)
		}
		table = invoice.RestockTable(rows)
	case "customers":
		rows, err := a.db.ListCustomers(ctx)
		if err != nil {
			return fmt.Errorf("listing customers: %w", err)
		}
		table = invoice.CustomerTable(rows)
	case "charges":
		s, err := exportFlags.summary(ctx, a)
		if err != nil {
			return err
		}
		table = invoice.LedgerTable(s)
	}

	out := exportOut
	if out == "" {
		out = args[0] + ".xlsx"
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := invoice.WriteTable(f, table); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}

	fmt.Printf("Exported %d rows to %s\n", len(table.Rows), out)
	return nil
}
