package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/energimultiguna/cngops/pkg/models"
)

const customerColumns = `customer_id, customer_name, customer_address, subscription_type, subscription_start,
	liter_weight_capacity, minimum_monthly_volume, buffer_count, applied_price`

// UpsertCustomer inserts or replaces a customer record
func (db *DB) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	query := `
	INSERT INTO customer (` + customerColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (customer_id) DO UPDATE SET
		customer_name = excluded.customer_name,
		customer_address = excluded.customer_address,
		subscription_type = excluded.subscription_type,
		subscription_start = excluded.subscription_start,
		liter_weight_capacity = excluded.liter_weight_capacity,
		minimum_monthly_volume = excluded.minimum_monthly_volume,
		buffer_count = excluded.buffer_count,
		applied_price = excluded.applied_price
	`

	var start sql.NullString
	if !c.SubscriptionStart.IsZero() {
		start = sql.NullString{String: c.SubscriptionStart.Format(models.DateLayout), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, db.rebind(query),
		c.CustomerID,
		c.Name,
		c.Address,
		c.SubscriptionType,
		start,
		c.LiterWeightCapacity,
		c.MinimumMonthlyVolume,
		c.BufferCount,
		c.AppliedPrice,
	)
	if err != nil {
		return storageErr("upserting customer "+c.CustomerID, err)
	}
	return nil
}

// GetCustomer retrieves a customer by id, returning ErrNotFound if absent
func (db *DB) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customer WHERE customer_id = ?`
	customers, err := db.queryCustomers(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, ErrNotFound
	}
	return &customers[0], nil
}

// ListCustomers retrieves all customers ordered by id
func (db *DB) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return db.queryCustomers(ctx, `SELECT `+customerColumns+` FROM customer ORDER BY customer_id`)
}

func (db *DB) queryCustomers(ctx context.Context, query string, args ...any) ([]models.Customer, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, storageErr("querying customers", err)
	}
	defer rows.Close()

	var results []models.Customer
	for rows.Next() {
		var c models.Customer
		var name, address, subType, start sql.NullString

		if err := rows.Scan(
			&c.CustomerID,
			&name,
			&address,
			&subType,
			&start,
			&c.LiterWeightCapacity,
			&c.MinimumMonthlyVolume,
			&c.BufferCount,
			&c.AppliedPrice,
		); err != nil {
			return nil, storageErr("scanning customer", err)
		}

		c.Name = nullString(name)
		c.Address = nullString(address)
		c.SubscriptionType = nullString(subType)
		if start.Valid && start.String != "" {
			c.SubscriptionStart, err = time.Parse(models.DateLayout, start.String)
			if err != nil {
				return nil, fmt.Errorf("parsing subscription_start of %s: %w", c.CustomerID, err)
			}
		}

		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("querying customers", err)
	}

	return results, nil
}
