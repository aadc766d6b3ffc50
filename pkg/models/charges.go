package models

import (
	"database/sql"
	"time"
)

// ChargeLedgerRow is one billed delivery for a customer
type ChargeLedgerRow struct {
	CustomerID          string          `json:"customer_id"`
	Date                time.Time       `json:"date"`
	Day                 string          `json:"day"`
	ChargedVolume       sql.NullFloat64 `json:"charged_volume"`
	UnitPrice           float64         `json:"unit_price"`
	ChargedPrice        sql.NullFloat64 `json:"charged_price"`
	StandMeter          sql.NullFloat64 `json:"std_meter_on_arrival"`
	DeliveryPressure    sql.NullFloat64 `json:"delivery_pressure"`
	DeliveryTemperature sql.NullFloat64 `json:"delivery_temperature"`
	MeterDiff           sql.NullFloat64 `json:"std_meter_diff"`
}

// ChargeSummary aggregates a customer's ledger over a date range
type ChargeSummary struct {
	CustomerID     string            `json:"customer_id"`
	Start          time.Time         `json:"start_date"`
	End            time.Time         `json:"end_date"`
	Rows           []ChargeLedgerRow `json:"rows"`
	UnitPrice      float64           `json:"unit_price"`
	PretotalVolume float64           `json:"pretotal_volume"`
	PretotalPrice  float64           `json:"pretotal_price"`
	VolumeBalance  float64           `json:"volume_balance"`
	PriceBalance   float64           `json:"price_balance"`
	TotalVolume    float64           `json:"total_volume"`
	TotalPrice     float64           `json:"total_price"`
	TaxRate        float64           `json:"tax_coef"`
	ChargedTax     float64           `json:"charged_tax"`
	TotalWithTax   float64           `json:"total_price_wtax"`
}
