package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/energimultiguna/cngops/internal/ingest"
	"github.com/energimultiguna/cngops/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and dashboard feed",
	Long: `Serves report submission, charges, invoices, exports and tracker series over
HTTP, pushes stored-report events to websocket clients on /ws and exposes
Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, then :8050)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.GetListenAddr()
	}

	hub := server.NewHub(a.logger)
	srv := server.New(server.Deps{
		Store: a.db,
		Submitter: a.submitter(
			ingest.WithNotifier(hub),
			ingest.WithRecorder(server.SubmissionRecorder{}),
		),
		Aggregator: a.aggregator,
		Reconciler: a.reconciler,
		Hub:        hub,
		Invoice:    a.invoiceLayout(),
		DueDays:    a.cfg.GetDueDays(),
		Logger:     a.logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("listening", zap.String("addr", addr), zap.String("driver", a.cfg.GetDriver()))
	return srv.ListenAndServe(ctx, addr)
}
