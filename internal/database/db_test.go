package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/energimultiguna/cngops/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func num(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func sampleDelivery(id string, at time.Time) *models.DeliveryReading {
	return &models.DeliveryReading{
		DeliveryID:          id,
		CustomerID:          "0110005",
		Route:               "route a",
		PlateNumber:         "B 1234 XYZ",
		ArrivalTime:         at,
		PreBufferPressure:   num(20),
		StandMeter:          num(1000),
		DeliveryPressure:    num(5),
		DeliveryTemperature: num(27),
		PostBufferPressure:  num(180),
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := New("oracle", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if _, err := New("sqlite", " "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestInsertDeliveryRoundTripAndDuplicate(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 5, 7, 45, 0, 0, time.UTC)
	d := sampleDelivery("0110005202403050745", at)
	if err := db.InsertDelivery(ctx, d); err != nil {
		t.Fatalf("InsertDelivery: %v", err)
	}

	changed := *d
	changed.StandMeter = num(9999)
	if err := db.InsertDelivery(ctx, &changed); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second insert err = %v, want ErrDuplicate", err)
	}

	got, err := db.ListDeliveriesByCustomer(ctx, "0110005")
	if err != nil {
		t.Fatalf("ListDeliveriesByCustomer: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].StandMeter.Float64 != 1000 {
		t.Fatalf("duplicate overwrote the stored row: %+v", got[0].StandMeter)
	}
	if !got[0].ArrivalTime.Equal(at) {
		t.Fatalf("ArrivalTime = %v", got[0].ArrivalTime)
	}
	if got[0].BankPressure.Valid {
		t.Fatalf("null reading came back as %v", got[0].BankPressure)
	}

	exists, err := db.DeliveryExists(ctx, d.DeliveryID)
	if err != nil || !exists {
		t.Fatalf("DeliveryExists = %v, %v", exists, err)
	}
}

func TestInsertDeliveryConcurrentDuplicates(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 5, 7, 45, 0, 0, time.UTC)
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.InsertDelivery(ctx, sampleDelivery("dup", at))
		}()
	}
	wg.Wait()
	close(errs)

	inserted := 0
	for err := range errs {
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, ErrDuplicate):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inserted != 1 {
		t.Fatalf("inserted %d times, want exactly once", inserted)
	}
}

func TestListDeliveriesOrdering(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, offset := range []int{3, 1, 2} {
		d := sampleDelivery(string(rune('a'+i)), base.Add(time.Duration(offset)*time.Hour))
		if i == 1 {
			d.PlateNumber = "B 9 Z"
		}
		if err := db.InsertDelivery(ctx, d); err != nil {
			t.Fatalf("InsertDelivery: %v", err)
		}
	}

	all, err := db.ListDeliveries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(all); i++ {
		if all[i].ArrivalTime.Before(all[i-1].ArrivalTime) {
			t.Fatalf("deliveries out of order: %v before %v", all[i-1].ArrivalTime, all[i].ArrivalTime)
		}
	}

	byPlate, err := db.ListDeliveriesByPlate(ctx, "B 1234 XYZ")
	if err != nil {
		t.Fatal(err)
	}
	if len(byPlate) != 2 {
		t.Fatalf("byPlate = %d rows", len(byPlate))
	}

	plates, err := db.ListPlates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(plates) != 2 || plates[0] != "B 1234 XYZ" || plates[1] != "B 9 Z" {
		t.Fatalf("plates = %v", plates)
	}
}

func TestRestockRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	r := &models.RestockEvent{
		RestockID:      "B1234XYZ20240304",
		PlateNumber:    "B 1234 XYZ",
		Date:           time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Volume:         2500.5,
		StationAddress: "Jl. Raya",
	}
	if err := db.InsertRestock(ctx, r); err != nil {
		t.Fatalf("InsertRestock: %v", err)
	}
	if err := db.InsertRestock(ctx, r); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v", err)
	}

	got, err := db.ListRestocksByPlate(ctx, "B 1234 XYZ")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Volume != 2500.5 || !got[0].Date.Equal(r.Date) {
		t.Fatalf("restocks = %+v", got)
	}
}

func TestCustomerUpsertAndNotFound(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.GetCustomer(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	c := &models.Customer{
		CustomerID:          "0110005",
		Name:                "PT Contoh",
		SubscriptionStart:   time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		LiterWeightCapacity: num(4000),
		AppliedPrice:        num(8500),
		BufferCount:         sql.NullInt64{Int64: 4, Valid: true},
	}
	if err := db.UpsertCustomer(ctx, c); err != nil {
		t.Fatalf("UpsertCustomer: %v", err)
	}
	c.AppliedPrice = num(9000)
	if err := db.UpsertCustomer(ctx, c); err != nil {
		t.Fatalf("UpsertCustomer update: %v", err)
	}

	got, err := db.GetCustomer(ctx, "0110005")
	if err != nil {
		t.Fatal(err)
	}
	if got.AppliedPrice.Float64 != 9000 || got.Name != "PT Contoh" || got.BufferCount.Int64 != 4 {
		t.Fatalf("customer = %+v", got)
	}
	if !got.SubscriptionStart.Equal(c.SubscriptionStart) {
		t.Fatalf("SubscriptionStart = %v", got.SubscriptionStart)
	}
	if got.MinimumMonthlyVolume.Valid {
		t.Fatalf("unset minimum volume should be null")
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()
	pg := &DB{postgres: true}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &DB{}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertDelivery(ctx, sampleDelivery("x", time.Now().UTC().Truncate(time.Second))); err != nil {
		t.Fatal(err)
	}
	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	all, err := db.ListDeliveries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty table after reset, got %d", len(all))
	}
}
