// Package tracker reconciles what a transport dispatched, what its customers
// consumed, what was billed and what was restocked, as cumulative series.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/energimultiguna/cngops/internal/charges"
	"github.com/energimultiguna/cngops/internal/correction"
	"github.com/energimultiguna/cngops/internal/database"
	"github.com/energimultiguna/cngops/pkg/models"
)

// Buffer geometry used by the pressure based volume estimate
const (
	fullBufferPressure = 200.0
	buffersPerSkid     = 4.0
)

// Store is the subset of the database the reconciler reads
type Store interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
	ListDeliveriesByPlate(ctx context.Context, plate string) ([]models.DeliveryReading, error)
	ListRestocksByPlate(ctx context.Context, plate string) ([]models.RestockEvent, error)
}

// Cache keeps computed series between refreshes
type Cache interface {
	Get(ctx context.Context, plate string) (*models.TrackerSeries, bool)
	Set(ctx context.Context, plate string, series *models.TrackerSeries)
	Invalidate(ctx context.Context, plate string)
}

// Reconciler computes tracker series per transport
type Reconciler struct {
	store  Store
	engine *correction.Engine
	cache  Cache
	logger *zap.Logger
}

// NewReconciler creates a reconciler. cache may be nil.
func NewReconciler(store Store, engine *correction.Engine, cache Cache, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, engine: engine, cache: cache, logger: logger}
}

// Row is one delivery with its pressure based estimates
type Row struct {
	models.CorrectedReading
	LiterWeightCapacity sql.NullFloat64
	EstVolumeOut        sql.NullFloat64
	EstVolumeConsumed   sql.NullFloat64
}

// Generate returns the cumulative series of a transport
func (r *Reconciler) Generate(ctx context.Context, plate string) (*models.TrackerSeries, error) {
	if r.cache != nil {
		if s, ok := r.cache.Get(ctx, plate); ok {
			return s, nil
		}
	}

	rows, err := r.Rows(ctx, plate)
	if err != nil {
		return nil, err
	}
	restocks, err := r.store.ListRestocksByPlate(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("loading restocks of %s: %w", plate, err)
	}

	series := &models.TrackerSeries{
		PlateNumber:        plate,
		RestockCumulative:  RestockCumulative(restocks),
		OutCumulative:      cumulative(rows, func(r Row) sql.NullFloat64 { return r.EstVolumeOut }),
		ConsumedCumulative: cumulative(rows, func(r Row) sql.NullFloat64 { return r.EstVolumeConsumed }),
		ChargedCumulative:  cumulative(rows, func(r Row) sql.NullFloat64 { return r.CorrectedVolume }),
	}

	if r.cache != nil {
		r.cache.Set(ctx, plate, series)
	}
	return series, nil
}

// Rows loads a transport's deliveries in arrival order with corrected volumes
// and the pressure based dispatch and consumption estimates.
func (r *Reconciler) Rows(ctx context.Context, plate string) ([]Row, error) {
	deliveries, err := r.store.ListDeliveriesByPlate(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("loading deliveries of %s: %w", plate, err)
	}
	corrected := r.engine.Apply(deliveries)

	capacities := make(map[string]sql.NullFloat64)
	rows := make([]Row, len(corrected))
	for i, c := range corrected {
		lwc, ok := capacities[c.CustomerID]
		if !ok {
			lwc, err = r.capacity(ctx, c.CustomerID)
			if err != nil {
				return nil, err
			}
			capacities[c.CustomerID] = lwc
		}
		rows[i] = Row{CorrectedReading: c, LiterWeightCapacity: lwc}
		rows[i].EstVolumeOut = estimate(c.PostBufferPressure, c.PreBufferPressure, lwc)
	}

	// Consumption between visits: what the previous visit left in the buffer
	// minus what this visit found. The first visit has no previous one and is
	// computed against zero pressure and zero capacity.
	for i := range rows {
		prevPost := sql.NullFloat64{Valid: true}
		prevLWC := sql.NullFloat64{Valid: true}
		if i > 0 {
			prevPost = rows[i-1].PostBufferPressure
			prevLWC = rows[i-1].LiterWeightCapacity
		}
		rows[i].EstVolumeConsumed = estimate(prevPost, rows[i].PreBufferPressure, prevLWC)
	}

	return rows, nil
}

// Invalidate drops the cached series of a transport
func (r *Reconciler) Invalidate(ctx context.Context, plate string) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, plate)
	}
}

func (r *Reconciler) capacity(ctx context.Context, customerID string) (sql.NullFloat64, error) {
	c, err := r.store.GetCustomer(ctx, customerID)
	if errors.Is(err, database.ErrNotFound) {
		r.logger.Warn("delivery references unknown customer", zap.String("customer_id", customerID))
		return sql.NullFloat64{}, nil
	}
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("loading customer %s: %w", customerID, err)
	}
	return c.LiterWeightCapacity, nil
}

// estimate converts a buffer pressure drop into volume
func estimate(high, low, lwc sql.NullFloat64) sql.NullFloat64 {
	if !high.Valid || !low.Valid || !lwc.Valid {
		return sql.NullFloat64{}
	}
	v := (high.Float64 - low.Float64) / fullBufferPressure * lwc.Float64 / buffersPerSkid
	return sql.NullFloat64{Float64: v, Valid: true}
}

func cumulative(rows []Row, value func(Row) sql.NullFloat64) []models.TrackerPoint {
	points := make([]models.TrackerPoint, len(rows))
	var sum float64
	for i, row := range rows {
		v := value(row)
		if v.Valid {
			sum += v.Float64
		}
		points[i] = models.TrackerPoint{
			Date:  charges.DateOf(row.ArrivalTime),
			Value: sum,
			Valid: v.Valid,
		}
	}
	return points
}

// RestockCumulative sums restock volumes in date order. The earliest restock
// only fills the transport for its first deliveries and is left out, so n
// restocks give n-1 points.
func RestockCumulative(restocks []models.RestockEvent) []models.TrackerPoint {
	if len(restocks) < 2 {
		return []models.TrackerPoint{}
	}
	points := make([]models.TrackerPoint, 0, len(restocks)-1)
	var sum float64
	for _, r := range restocks[1:] {
		sum += r.Volume
		points = append(points, models.TrackerPoint{Date: r.Date, Value: sum, Valid: true})
	}
	return points
}
