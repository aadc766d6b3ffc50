package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/internal/invoice"
)

var (
	invoiceFlags   chargeFlags
	invoiceNumber  string
	invoicePeriod  string
	invoiceAddress string
	invoiceOut     string
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Render a customer invoice workbook",
	Long:  `Computes the charge summary of a customer and writes it as an invoice .xlsx file.`,
	RunE:  runInvoice,
}

func init() {
	invoiceFlags.bind(invoiceCmd)
	invoiceCmd.Flags().StringVar(&invoiceNumber, "number", "", "Invoice number")
	invoiceCmd.Flags().StringVar(&invoicePeriod, "period", "", "Billing period text, e.g. \"Desember 2024\"")
	invoiceCmd.Flags().StringVar(&invoiceAddress, "address", "", "Billing address (default: the stored customer address)")
	invoiceCmd.Flags().StringVar(&invoiceOut, "out", "", "Output file (default: invoice_<customer>.xlsx)")
	rootCmd.AddCommand(invoiceCmd)
}

func runInvoice(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	summary, err := invoiceFlags.summary(ctx, a)
	if err != nil {
		return err
	}
	customer, err := a.db.GetCustomer(ctx, invoiceFlags.customer)
	if err != nil {
		return fmt.Errorf("loading customer: %w", err)
	}

	data, err := invoice.Build(customer, summary, invoice.Request{
		InvoiceNumber: invoiceNumber,
		Period:        invoicePeriod,
		Address:       invoiceAddress,
	}, a.cfg.GetDueDays())
	if err != nil {
		return err
	}

	out := invoiceOut
	if out == "" {
		out = fmt.Sprintf("invoice_%s.xlsx", customer.CustomerID)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := invoice.WriteWorkbook(f, data, a.invoiceLayout()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}

	fmt.Printf("Wrote invoice %s for %s to %s (total Rp %s, due %s)\n",
		data.InvoiceNumber, data.CustomerName, out, data.TotalTaxed, data.DueDate)
	return nil
}
