package models

import (
	"database/sql"
	"time"
)

// Customer is the billing master record
type Customer struct {
	CustomerID           string          `json:"customer_id"`
	Name                 string          `json:"customer_name"`
	Address              string          `json:"customer_address"`
	SubscriptionType     string          `json:"subscription_type"`
	SubscriptionStart    time.Time       `json:"subscription_start"`
	LiterWeightCapacity  sql.NullFloat64 `json:"liter_weight_capacity"`
	MinimumMonthlyVolume sql.NullFloat64 `json:"minimum_monthly_volume"`
	BufferCount          sql.NullInt64   `json:"buffer_count"`
	AppliedPrice         sql.NullFloat64 `json:"applied_price"`
}
