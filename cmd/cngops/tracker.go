package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/internal/tracker"
	"github.com/energimultiguna/cngops/pkg/models"
)

var (
	trackerPlate string
	trackerChart string
)

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Reconcile a transport's restocked and delivered volume",
	Long: `Computes the cumulative restock, estimated dispatch, estimated consumption
and charged volume curves of one transport. With --chart the curves are written
as an HTML line chart.`,
	RunE: runTracker,
}

func init() {
	trackerCmd.Flags().StringVar(&trackerPlate, "plate", "", "Transport plate number")
	trackerCmd.Flags().StringVar(&trackerChart, "chart", "", "Write the curves as an HTML chart to this file")
	_ = trackerCmd.MarkFlagRequired("plate")
	rootCmd.AddCommand(trackerCmd)
}

func runTracker(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.reconciler.Generate(context.Background(), trackerPlate)
	if err != nil {
		return err
	}

	fmt.Printf("\nTransport %s\n", s.PlateNumber)
	fmt.Println("----------------------------------------")
	printLast("Restocked", s.RestockCumulative)
	printLast("Delivered (est.)", s.OutCumulative)
	printLast("Consumed (est.)", s.ConsumedCumulative)
	printLast("Charged", s.ChargedCumulative)

	if trackerChart == "" {
		return nil
	}
	f, err := os.Create(trackerChart)
	if err != nil {
		return fmt.Errorf("creating %s: %w", trackerChart, err)
	}
	if err := tracker.RenderChart(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", trackerChart, err)
	}
	fmt.Printf("Chart written to %s\n", trackerChart)
	return nil
}

func printLast(label string, points []models.TrackerPoint) {
	last, ok := models.Last(points)
	if !ok {
		fmt.Printf("%-18s  %14s\n", label, "-")
		return
	}
	fmt.Printf("%-18s  %11s m3  (as of %s)\n", label, humanize.CommafWithDigits(last.Value, 2), last.Date.Format(models.DateLayout))
}
