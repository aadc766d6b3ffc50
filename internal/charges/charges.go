// Package charges turns a customer's corrected delivery volumes into a billed
// ledger and invoice totals.
package charges

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/energimultiguna/cngops/internal/correction"
	"github.com/energimultiguna/cngops/internal/database"
	"github.com/energimultiguna/cngops/pkg/models"
)

// UnknownCustomerError reports a customer that is missing from reference data
// or has no applied price.
type UnknownCustomerError struct {
	CustomerID string
	Reason     string
}

func (e *UnknownCustomerError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unknown customer %q: %s", e.CustomerID, e.Reason)
	}
	return fmt.Sprintf("unknown customer %q", e.CustomerID)
}

// Store is the subset of the database the aggregator reads
type Store interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
	ListDeliveriesByCustomer(ctx context.Context, customerID string) ([]models.DeliveryReading, error)
}

// Options holds the process-wide billing constants
type Options struct {
	TaxRate  float64
	DayNames map[string]string
}

// Aggregator computes charge summaries
type Aggregator struct {
	store    Store
	engine   *correction.Engine
	taxRate  float64
	dayNames map[string]string
}

// NewAggregator creates an aggregator. The day name table is copied.
func NewAggregator(store Store, engine *correction.Engine, opts Options) *Aggregator {
	names := make(map[string]string, len(opts.DayNames))
	for k, v := range opts.DayNames {
		names[k] = v
	}
	return &Aggregator{
		store:    store,
		engine:   engine,
		taxRate:  opts.TaxRate,
		dayNames: names,
	}
}

// TaxRate returns the configured tax rate
func (a *Aggregator) TaxRate() float64 {
	return a.taxRate
}

// Generate builds the ledger of a customer between start and end (both
// inclusive, compared by calendar date) and totals it. volumeBalance is a
// manual volume adjustment priced at the customer's unit price. A start after
// end yields an empty ledger.
func (a *Aggregator) Generate(ctx context.Context, customerID string, start, end time.Time, volumeBalance float64) (*models.ChargeSummary, error) {
	customer, err := a.store.GetCustomer(ctx, customerID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &UnknownCustomerError{CustomerID: customerID}
	}
	if err != nil {
		return nil, fmt.Errorf("loading customer %s: %w", customerID, err)
	}
	if !customer.AppliedPrice.Valid {
		return nil, &UnknownCustomerError{CustomerID: customerID, Reason: "no applied price"}
	}
	price := customer.AppliedPrice.Float64

	deliveries, err := a.store.ListDeliveriesByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("loading deliveries of %s: %w", customerID, err)
	}

	from, to := DateOf(start), DateOf(end)
	summary := &models.ChargeSummary{
		CustomerID:    customerID,
		Start:         from,
		End:           to,
		Rows:          []models.ChargeLedgerRow{},
		UnitPrice:     price,
		VolumeBalance: volumeBalance,
		TaxRate:       a.taxRate,
	}

	for _, r := range a.engine.Apply(deliveries) {
		date := DateOf(r.ArrivalTime)
		if date.Before(from) || date.After(to) {
			continue
		}

		row := models.ChargeLedgerRow{
			CustomerID:          r.CustomerID,
			Date:                date,
			Day:                 a.dayName(date.Weekday()),
			ChargedVolume:       r.CorrectedVolume,
			UnitPrice:           price,
			StandMeter:          r.StandMeter,
			DeliveryPressure:    r.DeliveryPressure,
			DeliveryTemperature: r.DeliveryTemperature,
			MeterDiff:           r.MeterDiff,
		}
		if r.CorrectedVolume.Valid {
			row.ChargedPrice.Float64 = r.CorrectedVolume.Float64 * price
			row.ChargedPrice.Valid = true
			summary.PretotalVolume += r.CorrectedVolume.Float64
			summary.PretotalPrice += row.ChargedPrice.Float64
		}
		summary.Rows = append(summary.Rows, row)
	}

	summary.PriceBalance = volumeBalance * price
	summary.TotalVolume = summary.PretotalVolume + volumeBalance
	summary.TotalPrice = summary.PretotalPrice + summary.PriceBalance
	summary.ChargedTax = summary.TotalPrice * a.taxRate
	summary.TotalWithTax = summary.TotalPrice + summary.ChargedTax

	return summary, nil
}

func (a *Aggregator) dayName(d time.Weekday) string {
	if name, ok := a.dayNames[d.String()]; ok {
		return name
	}
	return d.String()
}

// DateOf truncates a timestamp to its calendar date
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseRange parses an ISO date range from a caller boundary
func ParseRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q (use YYYY-MM-DD)", start)
	}
	to, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q (use YYYY-MM-DD)", end)
	}
	return from, to, nil
}

// ParseVolumeBalance parses the volume balance added on top of the delivered
// volume. Empty means zero; NaN and infinities are rejected.
func ParseVolumeBalance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid volume balance %q", s)
	}
	return v, nil
}
