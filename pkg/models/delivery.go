package models

import (
	"database/sql"
	"time"
)

// DeliveryReading represents a single refuel event at a customer site
type DeliveryReading struct {
	DeliveryID          string          `json:"delivery_id"`
	CustomerID          string          `json:"customer_id"`
	Route               string          `json:"delivery_route"`
	PlateNumber         string          `json:"transport_plate_number"`
	ArrivalTime         time.Time       `json:"arrival_timestamp"`
	PreBufferPressure   sql.NullFloat64 `json:"pre_buffer_pressure"`
	StandMeter          sql.NullFloat64 `json:"delivery_stand_meter"`
	DeliveryPressure    sql.NullFloat64 `json:"delivery_pressure"`
	DeliveryTemperature sql.NullFloat64 `json:"delivery_temperature"`
	PostBufferPressure  sql.NullFloat64 `json:"post_buffer_pressure"`
	BankPressure        sql.NullFloat64 `json:"transport_bank_pressure"`
}

// CorrectedReading is a delivery annotated with its meter delta and the
// pressure/temperature corrected volume. Both are invalid for the first
// reading of a partition.
type CorrectedReading struct {
	DeliveryReading
	MeterDiff       sql.NullFloat64 `json:"std_meter_diff"`
	CorrectedVolume sql.NullFloat64 `json:"corrected_volume"`
}

// TimestampLayout is the storage format of arrival timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the ISO date format used for dates at every boundary
const DateLayout = "2006-01-02"
