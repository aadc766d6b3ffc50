package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert collides with an existing key
	ErrDuplicate = errors.New("duplicate key")
)

// StorageError wraps a failure of the backing store
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

const (
	postgresMaxOpenConns = 10
	postgresMaxIdleConns = 2
	postgresConnLifetime = time.Hour
	pingTimeout          = 5 * time.Second
)

// DB wraps the database connection
type DB struct {
	conn     *sql.DB
	postgres bool
}

// New opens the store and initializes the schema. driver is "sqlite" or
// "postgres"; dsn is a file path or a connection URL respectively.
func New(driver, dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("opening database: empty DSN")
	}

	var (
		conn     *sql.DB
		err      error
		postgres bool
	)
	switch driver {
	case "", "sqlite":
		conn, err = sql.Open("sqlite", dsn)
		if err == nil {
			// Serializes writers so the check-then-insert transaction never sees SQLITE_BUSY
			conn.SetMaxOpenConns(1)
		}
	case "postgres", "pgx":
		postgres = true
		conn, err = sql.Open("pgx", dsn)
		if err == nil {
			conn.SetMaxOpenConns(postgresMaxOpenConns)
			conn.SetMaxIdleConns(postgresMaxIdleConns)
			conn.SetConnMaxLifetime(postgresConnLifetime)
		}
	default:
		return nil, fmt.Errorf("opening database: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := &DB{conn: conn, postgres: postgres}
	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables. Natural keys are primary keys so
// the store itself rejects duplicate reports.
func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS customer (
		customer_id TEXT PRIMARY KEY,
		customer_name TEXT,
		customer_address TEXT,
		subscription_type TEXT,
		subscription_start TEXT,
		liter_weight_capacity DOUBLE PRECISION,
		minimum_monthly_volume DOUBLE PRECISION,
		buffer_count INTEGER,
		applied_price DOUBLE PRECISION
	);
	CREATE TABLE IF NOT EXISTS delivery (
		delivery_id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		delivery_route TEXT,
		transport_plate_number TEXT NOT NULL,
		arrival_timestamp TEXT NOT NULL,
		pre_buffer_pressure DOUBLE PRECISION,
		delivery_stand_meter DOUBLE PRECISION,
		delivery_pressure DOUBLE PRECISION,
		delivery_temperature DOUBLE PRECISION,
		post_buffer_pressure DOUBLE PRECISION,
		transport_bank_pressure DOUBLE PRECISION
	);
	CREATE TABLE IF NOT EXISTS restock (
		restock_id TEXT PRIMARY KEY,
		restock_date TEXT NOT NULL,
		transport_plate_number TEXT NOT NULL,
		restock_volume DOUBLE PRECISION NOT NULL,
		gas_station_address TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_delivery_customer ON delivery(customer_id, arrival_timestamp);
	CREATE INDEX IF NOT EXISTS idx_delivery_plate ON delivery(transport_plate_number, arrival_timestamp);
	CREATE INDEX IF NOT EXISTS idx_restock_plate ON restock(transport_plate_number, restock_date);
	`

	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

// Reset drops and recreates all tables
func (db *DB) Reset(ctx context.Context) error {
	for _, table := range []string{"delivery", "restock", "customer"} {
		if _, err := db.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return storageErr("dropping table "+table, err)
		}
	}
	if err := db.initSchema(ctx); err != nil {
		return storageErr("recreating schema", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (db *DB) rebind(query string) string {
	if !db.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertUnique runs the existence check and the insert in one transaction.
// The insert itself ignores key conflicts, so a concurrent writer that wins the
// race still surfaces as ErrDuplicate rather than a second row.
func (db *DB) insertUnique(ctx context.Context, kind, existsQuery, key, insertQuery string, args ...any) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning "+kind+" insert", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, db.rebind(existsQuery), key).Scan(&one)
	switch {
	case err == nil:
		return ErrDuplicate
	case !errors.Is(err, sql.ErrNoRows):
		return storageErr("checking "+kind+" id", err)
	}

	res, err := tx.ExecContext(ctx, db.rebind(insertQuery), args...)
	if err != nil {
		return storageErr("inserting "+kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("inserting "+kind, err)
	}
	if n == 0 {
		return ErrDuplicate
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing "+kind, err)
	}
	return nil
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
