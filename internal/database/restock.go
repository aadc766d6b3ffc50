package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/energimultiguna/cngops/pkg/models"
)

const restockColumns = `restock_id, restock_date, transport_plate_number, restock_volume, gas_station_address`

// InsertRestock stores a restock event, returning ErrDuplicate if the
// plate already has a restock on that date.
func (db *DB) InsertRestock(ctx context.Context, r *models.RestockEvent) error {
	query := `
	INSERT INTO restock (` + restockColumns + `)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (restock_id) DO NOTHING
	`

	return db.insertUnique(ctx, "restock",
		`SELECT 1 FROM restock WHERE restock_id = ?`, r.RestockID,
		query,
		r.RestockID,
		r.Date.Format(models.DateLayout),
		r.PlateNumber,
		r.Volume,
		r.StationAddress,
	)
}

// RestockExists checks whether a restock id is already stored
func (db *DB) RestockExists(ctx context.Context, restockID string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT 1 FROM restock WHERE restock_id = ?`), restockID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("checking restock id", err)
	}
	return true, nil
}

// ListRestocks retrieves all restocks ordered by date
func (db *DB) ListRestocks(ctx context.Context) ([]models.RestockEvent, error) {
	query := `SELECT ` + restockColumns + ` FROM restock ORDER BY restock_date, restock_id`
	return db.queryRestocks(ctx, query)
}

// ListRestocksByPlate retrieves a transport's restocks ordered by date
func (db *DB) ListRestocksByPlate(ctx context.Context, plate string) ([]models.RestockEvent, error) {
	query := `SELECT ` + restockColumns + ` FROM restock
	WHERE transport_plate_number = ?
	ORDER BY restock_date, restock_id`
	return db.queryRestocks(ctx, query, plate)
}

func (db *DB) queryRestocks(ctx context.Context, query string, args ...any) ([]models.RestockEvent, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, storageErr("querying restocks", err)
	}
	defer rows.Close()

	var results []models.RestockEvent
	for rows.Next() {
		var r models.RestockEvent
		var date string
		var address sql.NullString

		if err := rows.Scan(&r.RestockID, &date, &r.PlateNumber, &r.Volume, &address); err != nil {
			return nil, storageErr("scanning restock", err)
		}

		r.StationAddress = nullString(address)
		r.Date, err = time.Parse(models.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parsing restock_date of %s: %w", r.RestockID, err)
		}

		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("querying restocks", err)
	}

	return results, nil
}
