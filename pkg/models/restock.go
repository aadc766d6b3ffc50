package models

import "time"

// RestockEvent represents a transport refill at a supply station
type RestockEvent struct {
	RestockID      string    `json:"restock_id"`
	PlateNumber    string    `json:"transport_plate_number"`
	Date           time.Time `json:"restock_date"`
	Volume         float64   `json:"restock_volume"`
	StationAddress string    `json:"gas_station_address"`
}
