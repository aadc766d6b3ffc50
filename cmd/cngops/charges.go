package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/internal/charges"
	"github.com/energimultiguna/cngops/pkg/models"
)

// chargeFlags are shared by the commands that compute a charge summary
type chargeFlags struct {
	customer string
	start    string
	end      string
	balance  float64
}

func (f *chargeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.customer, "customer", "", "Customer ID")
	cmd.Flags().StringVar(&f.start, "start", "", "First billed day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last billed day (YYYY-MM-DD), inclusive")
	cmd.Flags().Float64Var(&f.balance, "balance", 0, "Volume balance added to the total (m3)")
}

func (f *chargeFlags) summary(ctx context.Context, a *app) (*models.ChargeSummary, error) {
	if f.customer == "" {
		return nil, fmt.Errorf("--customer is required")
	}
	if math.IsNaN(f.balance) || math.IsInf(f.balance, 0) {
		return nil, fmt.Errorf("invalid --balance %v", f.balance)
	}
	start, end, err := parseRangeFlags(f.start, f.end)
	if err != nil {
		return nil, err
	}
	return a.aggregator.Generate(ctx, f.customer, start, end, f.balance)
}

// parseRangeFlags defaults to the current month when both bounds are empty
func parseRangeFlags(start, end string) (time.Time, time.Time, error) {
	if start == "" && end == "" {
		now := time.Now().UTC()
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, -1), nil
	}
	return charges.ParseRange(start, end)
}

var chargesFlags chargeFlags

var chargesCmd = &cobra.Command{
	Use:   "charges",
	Short: "Show the charge ledger of a customer",
	Long: `Computes corrected volumes and prices of every delivery of a customer in the
date range, plus the totals with volume balance and tax.`,
	RunE: runCharges,
}

func init() {
	chargesFlags.bind(chargesCmd)
	rootCmd.AddCommand(chargesCmd)
}

func runCharges(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := chargesFlags.summary(context.Background(), a)
	if err != nil {
		return err
	}

	fmt.Printf("\nCharges for %s, %s to %s\n", s.CustomerID, s.Start.Format(models.DateLayout), s.End.Format(models.DateLayout))
	fmt.Println("----------------------------------------------------------")
	fmt.Printf("%-10s  %-8s  %12s  %18s\n", "Date", "Day", "Volume", "Price")
	fmt.Println("----------------------------------------------------------")
	for _, r := range s.Rows {
		fmt.Printf("%-10s  %-8s  %12s  %18s\n", r.Date.Format(models.DateLayout), r.Day,
			reading(r.ChargedVolume.Float64, r.ChargedVolume.Valid),
			reading(r.ChargedPrice.Float64, r.ChargedPrice.Valid))
	}
	fmt.Println("----------------------------------------------------------")
	fmt.Printf("Subtotal:       %12s m3  %18s\n", humanize.CommafWithDigits(s.PretotalVolume, 2), humanize.CommafWithDigits(s.PretotalPrice, 2))
	fmt.Printf("Balance:        %12s m3  %18s\n", humanize.CommafWithDigits(s.VolumeBalance, 2), humanize.CommafWithDigits(s.PriceBalance, 2))
	fmt.Printf("Total:          %12s m3  %18s\n", humanize.CommafWithDigits(s.TotalVolume, 2), humanize.CommafWithDigits(s.TotalPrice, 2))
	fmt.Printf("Tax (%.0f%%):                       %18s\n", s.TaxRate*100, humanize.CommafWithDigits(s.ChargedTax, 2))
	fmt.Printf("Total with tax:                   %18s\n", humanize.CommafWithDigits(s.TotalWithTax, 2))
	return nil
}
