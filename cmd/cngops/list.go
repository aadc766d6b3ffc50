package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/pkg/models"
)

var listCmd = &cobra.Command{
	Use:       "list [deliveries|restocks|customers|plates]",
	Short:     "List stored records",
	Long:      `Displays stored deliveries, restocks, customers or known transport plates.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"deliveries", "restocks", "customers", "plates"},
	RunE:      runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	switch args[0] {
	case "deliveries":
		rows, err := a.db.ListDeliveries(ctx)
		if err != nil {
			return fmt.Errorf("listing deliveries: %w", err)
		}
		fmt.Printf("%-20s  %-10s  %-12s  %-16s  %10s\n", "Delivery", "Customer", "Plate", "Arrival", "Meter")
		fmt.Println("------------------------------------------------------------------------------")
		for _, d := range rows {
			fmt.Printf("%-20s  %-10s  %-12s  %-16s  %10s\n",
				d.DeliveryID, d.CustomerID, d.PlateNumber, d.ArrivalTime.Format("2006-01-02 15:04"), reading(d.StandMeter.Float64, d.StandMeter.Valid))
		}
		fmt.Printf("%d deliveries\n", len(rows))

	case "restocks":
		rows, err := a.db.ListRestocks(ctx)
		if err != nil {
			return fmt.Errorf("listing restocks: %w", err)
		}
		fmt.Printf("%-20s  %-12s  %-10s  %12s\n", "Restock", "Plate", "Date", "Volume")
		fmt.Println("--------------------------------------------------------------")
		var total float64
		for _, r := range rows {
			fmt.Printf("%-20s  %-12s  %-10s  %12s\n", r.RestockID, r.PlateNumber, r.Date.Format(models.DateLayout), humanize.CommafWithDigits(r.Volume, 2))
			total += r.Volume
		}
		fmt.Printf("Total: %s m3 (%d restocks)\n", humanize.CommafWithDigits(total, 2), len(rows))

	case "customers":
		rows, err := a.db.ListCustomers(ctx)
		if err != nil {
			return fmt.Errorf("listing customers: %w", err)
		}
		fmt.Printf("%-10s  %-30s  %10s  %10s\n", "Customer", "Name", "LWC", "Price")
		fmt.Println("----------------------------------------------------------------")
		for _, c := range rows {
			fmt.Printf("%-10s  %-30s  %10s  %10s\n", c.CustomerID, c.Name,
				reading(c.LiterWeightCapacity.Float64, c.LiterWeightCapacity.Valid),
				reading(c.AppliedPrice.Float64, c.AppliedPrice.Valid))
		}

	case "plates":
		plates, err := a.db.ListPlates(ctx)
		if err != nil {
			return fmt.Errorf("listing plates: %w", err)
		}
		for _, p := range plates {
			fmt.Println(p)
		}
	}

	return nil
}

// reading formats an optional value, "-" when absent
func reading(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return humanize.CommafWithDigits(v, 2)
}
