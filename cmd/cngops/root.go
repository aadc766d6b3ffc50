package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/energimultiguna/cngops/internal/cache"
	"github.com/energimultiguna/cngops/internal/charges"
	"github.com/energimultiguna/cngops/internal/config"
	"github.com/energimultiguna/cngops/internal/correction"
	"github.com/energimultiguna/cngops/internal/database"
	"github.com/energimultiguna/cngops/internal/ingest"
	"github.com/energimultiguna/cngops/internal/invoice"
	"github.com/energimultiguna/cngops/internal/logging"
	"github.com/energimultiguna/cngops/internal/tracker"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "cngops",
	Short: "Track CNG deliveries, charges and transport stock",
	Long: `cngops records field reports of compressed natural gas deliveries and
transport restocks, computes corrected volumes and monthly charges per customer,
renders invoices and reconciles transport stock against what was delivered.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database DSN, overrides the config (default is ./data.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.DSN = dbPath
	}
	return cfg, nil
}

// openDB opens the configured store
func openDB(cfg *config.Config) (*database.DB, error) {
	dsn := cfg.GetDSN()
	if cfg.GetDriver() == "sqlite" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return database.New(cfg.GetDriver(), dsn)
}

// app holds the services shared by the subcommands
type app struct {
	cfg        *config.Config
	db         *database.DB
	redis      *redis.Client
	logger     *zap.Logger
	engine     *correction.Engine
	aggregator *charges.Aggregator
	reconciler *tracker.Reconciler
}

// newApp loads config, opens the store and wires the services. jsonLogs
// selects structured output for the long-running server.
func newApp(jsonLogs bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, jsonLogs)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{
		cfg:    cfg,
		db:     db,
		logger: logger,
		engine: correction.NewEngine(correction.ConstantsFromConfig(cfg)),
	}
	a.aggregator = charges.NewAggregator(db, a.engine, charges.Options{
		TaxRate:  cfg.GetTaxRate(),
		DayNames: cfg.GetDayNames(),
	})

	var trackerCache tracker.Cache = cache.NewMemoryTrackerCache(cfg.GetTrackerCacheTTL())
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			// Tracker series are recomputed per process without the shared cache
			logger.Warn("redis unavailable, using in-memory tracker cache",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.redis = client
			trackerCache = cache.NewRedisTrackerCache(client, cfg.GetTrackerCacheTTL(), logger)
		}
	}
	a.reconciler = tracker.NewReconciler(db, a.engine, trackerCache, logger)

	return a, nil
}

// submitter builds the report submitter, invalidating cached tracker series
// on every stored report
func (a *app) submitter(opts ...ingest.Option) *ingest.Submitter {
	opts = append([]ingest.Option{ingest.WithInvalidator(a.reconciler)}, opts...)
	return ingest.NewSubmitter(a.db, a.logger, opts...)
}

// invoiceLayout returns the fixed invoice text from config
func (a *app) invoiceLayout() invoice.Layout {
	return invoice.Layout{
		Signer:      a.cfg.GetSigner(),
		SignerTitle: "Direktur",
		BankLines:   a.cfg.GetBankLines(),
	}
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
	_ = a.logger.Sync()
}
