package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/internal/publisher"
)

var publishPlate string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish transport tracker totals to MQTT",
	Long: `Computes the tracker series of every transport, or only --plate, and
publishes the latest cumulative totals as retained MQTT messages.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishPlate, "plate", "", "Transport to publish (default: all transports)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	pub, err := publisher.New(a.cfg)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	plates := []string{publishPlate}
	if publishPlate == "" {
		plates, err = a.db.ListPlates(ctx)
		if err != nil {
			return fmt.Errorf("listing plates: %w", err)
		}
	}
	if len(plates) == 0 {
		fmt.Println("No transports found")
		return nil
	}

	published := 0
	for i, plate := range plates {
		fmt.Printf("[%d/%d] Publishing %s... ", i+1, len(plates), plate)
		s, err := a.reconciler.Generate(ctx, plate)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}
		if err := pub.PublishTracker(s); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}
		fmt.Printf("✓\n")
		published++
	}

	fmt.Printf("\nPublished %d/%d transports\n", published, len(plates))
	return nil
}
