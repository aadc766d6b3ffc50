package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/energimultiguna/cngops/pkg/models"
)

const deliveryColumns = `delivery_id, customer_id, delivery_route, transport_plate_number, arrival_timestamp,
	pre_buffer_pressure, delivery_stand_meter, delivery_pressure, delivery_temperature,
	post_buffer_pressure, transport_bank_pressure`

// InsertDelivery stores a delivery reading. It returns ErrDuplicate, with no
// side effect, when the delivery id already exists.
func (db *DB) InsertDelivery(ctx context.Context, d *models.DeliveryReading) error {
	query := `
	INSERT INTO delivery (` + deliveryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (delivery_id) DO NOTHING
	`

	return db.insertUnique(ctx, "delivery",
		`SELECT 1 FROM delivery WHERE delivery_id = ?`, d.DeliveryID,
		query,
		d.DeliveryID,
		d.CustomerID,
		d.Route,
		d.PlateNumber,
		d.ArrivalTime.Format(models.TimestampLayout),
		d.PreBufferPressure,
		d.StandMeter,
		d.DeliveryPressure,
		d.DeliveryTemperature,
		d.PostBufferPressure,
		d.BankPressure,
	)
}

// DeliveryExists checks whether a delivery id is already stored
func (db *DB) DeliveryExists(ctx context.Context, deliveryID string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT 1 FROM delivery WHERE delivery_id = ?`), deliveryID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("checking delivery id", err)
	}
	return true, nil
}

// ListDeliveries retrieves all deliveries ordered by arrival time
func (db *DB) ListDeliveries(ctx context.Context) ([]models.DeliveryReading, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery ORDER BY arrival_timestamp, delivery_id`
	return db.queryDeliveries(ctx, query)
}

// ListDeliveriesByCustomer retrieves a customer's deliveries ordered by arrival time
func (db *DB) ListDeliveriesByCustomer(ctx context.Context, customerID string) ([]models.DeliveryReading, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery
	WHERE customer_id = ?
	ORDER BY arrival_timestamp, delivery_id`
	return db.queryDeliveries(ctx, query, customerID)
}

// ListDeliveriesByPlate retrieves a transport's deliveries ordered by arrival time
func (db *DB) ListDeliveriesByPlate(ctx context.Context, plate string) ([]models.DeliveryReading, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery
	WHERE transport_plate_number = ?
	ORDER BY arrival_timestamp, delivery_id`
	return db.queryDeliveries(ctx, query, plate)
}

// ListPlates returns the distinct transport plates seen in deliveries
func (db *DB) ListPlates(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT transport_plate_number FROM delivery ORDER BY transport_plate_number`)
	if err != nil {
		return nil, storageErr("querying plates", err)
	}
	defer rows.Close()

	var plates []string
	for rows.Next() {
		var plate string
		if err := rows.Scan(&plate); err != nil {
			return nil, storageErr("scanning plate", err)
		}
		plates = append(plates, plate)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("querying plates", err)
	}
	return plates, nil
}

func (db *DB) queryDeliveries(ctx context.Context, query string, args ...any) ([]models.DeliveryReading, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, storageErr("querying deliveries", err)
	}
	defer rows.Close()

	var results []models.DeliveryReading
	for rows.Next() {
		var d models.DeliveryReading
		var route sql.NullString
		var arrival string

		if err := rows.Scan(
			&d.DeliveryID,
			&d.CustomerID,
			&route,
			&d.PlateNumber,
			&arrival,
			&d.PreBufferPressure,
			&d.StandMeter,
			&d.DeliveryPressure,
			&d.DeliveryTemperature,
			&d.PostBufferPressure,
			&d.BankPressure,
		); err != nil {
			return nil, storageErr("scanning delivery", err)
		}

		d.Route = nullString(route)
		d.ArrivalTime, err = time.Parse(models.TimestampLayout, arrival)
		if err != nil {
			return nil, fmt.Errorf("parsing arrival_timestamp of %s: %w", d.DeliveryID, err)
		}

		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("querying deliveries", err)
	}

	return results, nil
}
