package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/internal/seed"
)

var (
	seedDir   string
	seedReset bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load customers, deliveries and restocks from YAML seed files",
	Long: `Reads customer.yml, delivery.yml and restock.yml from the seed directory and
stores them. Reports already in the store are counted as duplicates and skipped.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "seed", "Directory holding the seed files")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "Drop and recreate all tables before loading")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := seed.New(a.db, a.submitter(), a.logger, seed.WithInvalidator(a.reconciler)).Load(context.Background(), seedDir, seedReset)
	if err != nil {
		return fmt.Errorf("seeding from %s: %w", seedDir, err)
	}

	fmt.Printf("Loaded %d customers, %d deliveries, %d restocks", summary.Customers, summary.Deliveries, summary.Restocks)
	if summary.Duplicates > 0 {
		fmt.Printf(" (%d duplicates skipped)", summary.Duplicates)
	}
	fmt.Println()
	return nil
}
