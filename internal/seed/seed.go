// Package seed loads reference and historical data from YAML files into the
// store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/energimultiguna/cngops/internal/ingest"
	"github.com/energimultiguna/cngops/internal/report"
	"github.com/energimultiguna/cngops/pkg/models"
)

// Seed file names inside the seed directory
const (
	CustomerFile = "customer.yml"
	DeliveryFile = "delivery.yml"
	RestockFile  = "restock.yml"
)

// Seed files write arrival times as HH.MM
const seedTimeLayout = "15.04"

// seedPlateField is the plate column name used by the seed files
const seedPlateField = "plate_number"

// Store is what the seeder writes through directly
type Store interface {
	UpsertCustomer(ctx context.Context, c *models.Customer) error
	Reset(ctx context.Context) error
	ListPlates(ctx context.Context) ([]string, error)
}

// Invalidator drops derived per-transport state, such as cached tracker series
type Invalidator interface {
	Invalidate(ctx context.Context, plate string)
}

// Submitter stores parsed reports with duplicate detection
type Submitter interface {
	StoreDelivery(ctx context.Context, d *models.DeliveryReading) (ingest.Result, error)
	StoreRestock(ctx context.Context, r *models.RestockEvent) (ingest.Result, error)
}

// Summary counts what a seed run stored
type Summary struct {
	Customers  int
	Deliveries int
	Restocks   int
	Duplicates int
}

// Seeder loads seed files
type Seeder struct {
	store       Store
	submitter   Submitter
	invalidator Invalidator
	logger      *zap.Logger
}

// Option configures a Seeder
type Option func(*Seeder)

// WithInvalidator invalidates every transport touched by a load, including
// transports that a reset removed. Customer capacities feed the tracker, so
// a customer upsert alone can change a transport's series.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Seeder) { s.invalidator = inv }
}

// New creates a seeder
func New(store Store, submitter Submitter, logger *zap.Logger, opts ...Option) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Seeder{store: store, submitter: submitter, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads customer, delivery and restock files from dir. Missing files are
// skipped. With reset the tables are dropped and recreated first.
func (s *Seeder) Load(ctx context.Context, dir string, reset bool) (*Summary, error) {
	var stale []string
	if reset && s.invalidator != nil {
		plates, err := s.store.ListPlates(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing plates before reset: %w", err)
		}
		stale = plates
	}
	if reset {
		if err := s.store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("resetting tables: %w", err)
		}
		s.logger.Info("tables reset")
	}

	sum := &Summary{}

	customers, err := readRows(filepath.Join(dir, CustomerFile))
	if err != nil {
		return nil, err
	}
	for i, row := range customers {
		c, err := ParseCustomer(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", CustomerFile, i+1, err)
		}
		if err := s.store.UpsertCustomer(ctx, c); err != nil {
			return nil, fmt.Errorf("storing customer %s: %w", c.CustomerID, err)
		}
		sum.Customers++
	}

	deliveries, err := readRows(filepath.Join(dir, DeliveryFile))
	if err != nil {
		return nil, err
	}
	for i, row := range deliveries {
		renamePlate(row)
		d, err := report.ParseDeliveryFields(row, seedTimeLayout)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", DeliveryFile, i+1, err)
		}
		d.Route = strings.ToLower(d.Route)
		res, err := s.submitter.StoreDelivery(ctx, d)
		switch {
		case res.Status == ingest.StatusDuplicate:
			sum.Duplicates++
		case err != nil:
			return nil, fmt.Errorf("%s row %d: %w", DeliveryFile, i+1, err)
		default:
			sum.Deliveries++
		}
	}

	restocks, err := readRows(filepath.Join(dir, RestockFile))
	if err != nil {
		return nil, err
	}
	for i, row := range restocks {
		renamePlate(row)
		r, err := report.ParseRestockFields(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", RestockFile, i+1, err)
		}
		res, err := s.submitter.StoreRestock(ctx, r)
		switch {
		case res.Status == ingest.StatusDuplicate:
			sum.Duplicates++
		case err != nil:
			return nil, fmt.Errorf("%s row %d: %w", RestockFile, i+1, err)
		default:
			sum.Restocks++
		}
	}

	if err := s.invalidate(ctx, stale); err != nil {
		return nil, err
	}

	s.logger.Info("seed loaded",
		zap.Int("customers", sum.Customers),
		zap.Int("deliveries", sum.Deliveries),
		zap.Int("restocks", sum.Restocks),
		zap.Int("duplicates", sum.Duplicates))
	return sum, nil
}

// invalidate drops derived state of the stale plates and of every plate now
// in the store
func (s *Seeder) invalidate(ctx context.Context, stale []string) error {
	if s.invalidator == nil {
		return nil
	}
	plates, err := s.store.ListPlates(ctx)
	if err != nil {
		return fmt.Errorf("listing plates after seeding: %w", err)
	}
	seen := make(map[string]struct{}, len(stale)+len(plates))
	for _, p := range append(stale, plates...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		s.invalidator.Invalidate(ctx, p)
	}
	return nil
}

// readRows decodes a YAML list of maps. Scalars keep their source text so
// values like 07.30 are not turned into numbers; YAML null becomes a nil value.
func readRows(path string) ([]report.Fields, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var rows []report.Fields
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

func renamePlate(row report.Fields) {
	if v, ok := row[seedPlateField]; ok {
		if _, exists := row[report.FieldPlateNumber]; !exists {
			row[report.FieldPlateNumber] = v
		}
		delete(row, seedPlateField)
	}
}

// Customer seed field names
const (
	fieldCustomerName     = "customer_name"
	fieldCustomerAddress  = "customer_address"
	fieldSubscriptionType = "subscription_type"
	fieldSubscriptionFrom = "subscription_start"
	fieldCapacity         = "liter_weight_capacity"
	fieldMinimumVolume    = "minimum_monthly_volume"
	fieldBufferCount      = "buffer_count"
	fieldAppliedPrice     = "applied_price"
)

// ParseCustomer builds a customer record from a seed row
func ParseCustomer(row report.Fields) (*models.Customer, error) {
	id, err := row.Require(report.FieldCustomerID)
	if err != nil {
		return nil, err
	}

	c := &models.Customer{
		CustomerID:           strings.TrimSpace(id),
		Name:                 text(row, fieldCustomerName),
		Address:              text(row, fieldCustomerAddress),
		SubscriptionType:     text(row, fieldSubscriptionType),
		LiterWeightCapacity:  row.Float(fieldCapacity),
		MinimumMonthlyVolume: row.Float(fieldMinimumVolume),
		AppliedPrice:         row.Float(fieldAppliedPrice),
	}

	if start := text(row, fieldSubscriptionFrom); start != "" {
		t, err := time.Parse(models.DateLayout, start)
		if err != nil {
			return nil, &report.DateFormatError{Field: fieldSubscriptionFrom, Value: start, Layout: "YYYY-MM-DD"}
		}
		c.SubscriptionStart = t
	}
	if n := text(row, fieldBufferCount); n != "" {
		v, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, &report.InvalidValueError{Field: fieldBufferCount, Value: n, Reason: "not an integer"}
		}
		c.BufferCount.Int64, c.BufferCount.Valid = v, true
	}
	return c, nil
}

func text(row report.Fields, name string) string {
	if v := row[name]; v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}
