package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/energimultiguna/cngops/internal/ingest"
)

var deliveryCmd = &cobra.Command{
	Use:   "delivery",
	Short: "Work with delivery reports",
}

var deliverySubmitCmd = &cobra.Command{
	Use:   "submit [file|-]",
	Short: "Submit a delivery report",
	Long: `Parses a delivery report written as alternating field-name and value lines
and stores it. The report is read from the file argument, or stdin when the
argument is "-" or missing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(args, (*ingest.Submitter).SubmitDelivery)
	},
}

var restockCmd = &cobra.Command{
	Use:   "restock",
	Short: "Work with restock reports",
}

var restockSubmitCmd = &cobra.Command{
	Use:   "submit [file|-]",
	Short: "Submit a restock report",
	Long: `Parses a restock report written as alternating field-name and value lines
and stores it. The report is read from the file argument, or stdin when the
argument is "-" or missing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(args, (*ingest.Submitter).SubmitRestock)
	},
}

func init() {
	deliveryCmd.AddCommand(deliverySubmitCmd)
	restockCmd.AddCommand(restockSubmitCmd)
	rootCmd.AddCommand(deliveryCmd, restockCmd)
}

func runSubmit(args []string, submit func(*ingest.Submitter, context.Context, string) (ingest.Result, error)) error {
	text, err := readReport(args)
	if err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := submit(a.submitter(), context.Background(), text)
	if err != nil {
		return err
	}
	fmt.Printf("Stored %s %s (transport %s)\n", res.Kind, res.ID, res.Plate)
	return nil
}

// readReport reads the report text from a file or stdin
func readReport(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading report from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading report: %w", err)
	}
	return string(data), nil
}
