package server

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/energimultiguna/cngops/pkg/models"
)

type apiErrorJSON struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type deliveryJSON struct {
	DeliveryID          string   `json:"delivery_id"`
	CustomerID          string   `json:"customer_id"`
	Route               string   `json:"delivery_route"`
	PlateNumber         string   `json:"transport_plate_number"`
	ArrivalTimestamp    string   `json:"arrival_timestamp"`
	PreBufferPressure   *float64 `json:"pre_buffer_pressure"`
	StandMeter          *float64 `json:"delivery_stand_meter"`
	DeliveryPressure    *float64 `json:"delivery_pressure"`
	DeliveryTemperature *float64 `json:"delivery_temperature"`
	PostBufferPressure  *float64 `json:"post_buffer_pressure"`
	BankPressure        *float64 `json:"transport_bank_pressure"`
}

type restockJSON struct {
	RestockID      string  `json:"restock_id"`
	Date           string  `json:"restock_date"`
	PlateNumber    string  `json:"transport_plate_number"`
	Volume         float64 `json:"restock_volume"`
	StationAddress string  `json:"gas_station_address"`
}

type customerJSON struct {
	CustomerID           string   `json:"customer_id"`
	Name                 string   `json:"customer_name"`
	Address              string   `json:"customer_address"`
	SubscriptionType     string   `json:"subscription_type"`
	SubscriptionStart    string   `json:"subscription_start,omitempty"`
	LiterWeightCapacity  *float64 `json:"liter_weight_capacity"`
	MinimumMonthlyVolume *float64 `json:"minimum_monthly_volume"`
	BufferCount          *int64   `json:"buffer_count"`
	AppliedPrice         *float64 `json:"applied_price"`
}

type ledgerRowJSON struct {
	CustomerID          string   `json:"customer_id"`
	Date                string   `json:"date"`
	Day                 string   `json:"day"`
	ChargedVolume       *float64 `json:"charged_volume"`
	UnitPrice           float64  `json:"unit_price"`
	ChargedPrice        *float64 `json:"charged_price"`
	StandMeter          *float64 `json:"std_meter_on_arrival"`
	DeliveryPressure    *float64 `json:"delivery_pressure"`
	DeliveryTemperature *float64 `json:"delivery_temperature"`
	MeterDiff           *float64 `json:"std_meter_diff"`
}

type chargeSummaryJSON struct {
	CustomerID     string          `json:"customer_id"`
	Start          string          `json:"start_date"`
	End            string          `json:"end_date"`
	Rows           []ledgerRowJSON `json:"rows"`
	UnitPrice      float64         `json:"unit_price"`
	PretotalVolume float64         `json:"pretotal_volume"`
	PretotalPrice  float64         `json:"pretotal_price"`
	VolumeBalance  float64         `json:"volume_balance"`
	PriceBalance   float64         `json:"price_balance"`
	TotalVolume    float64         `json:"total_volume"`
	TotalPrice     float64         `json:"total_price"`
	TaxRate        float64         `json:"tax_coef"`
	ChargedTax     float64         `json:"charged_tax"`
	TotalWithTax   float64         `json:"total_price_wtax"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toDeliveryJSON(d models.DeliveryReading) deliveryJSON {
	return deliveryJSON{
		DeliveryID:          d.DeliveryID,
		CustomerID:          d.CustomerID,
		Route:               d.Route,
		PlateNumber:         d.PlateNumber,
		ArrivalTimestamp:    d.ArrivalTime.Format(models.TimestampLayout),
		PreBufferPressure:   nullable(d.PreBufferPressure),
		StandMeter:          nullable(d.StandMeter),
		DeliveryPressure:    nullable(d.DeliveryPressure),
		DeliveryTemperature: nullable(d.DeliveryTemperature),
		PostBufferPressure:  nullable(d.PostBufferPressure),
		BankPressure:        nullable(d.BankPressure),
	}
}

func toRestockJSON(r models.RestockEvent) restockJSON {
	return restockJSON{
		RestockID:      r.RestockID,
		Date:           r.Date.Format(models.DateLayout),
		PlateNumber:    r.PlateNumber,
		Volume:         r.Volume,
		StationAddress: r.StationAddress,
	}
}

func toCustomerJSON(c models.Customer) customerJSON {
	out := customerJSON{
		CustomerID:           c.CustomerID,
		Name:                 c.Name,
		Address:              c.Address,
		SubscriptionType:     c.SubscriptionType,
		LiterWeightCapacity:  nullable(c.LiterWeightCapacity),
		MinimumMonthlyVolume: nullable(c.MinimumMonthlyVolume),
		AppliedPrice:         nullable(c.AppliedPrice),
	}
	if !c.SubscriptionStart.IsZero() {
		out.SubscriptionStart = c.SubscriptionStart.Format(models.DateLayout)
	}
	if c.BufferCount.Valid {
		n := c.BufferCount.Int64
		out.BufferCount = &n
	}
	return out
}

func toChargeSummaryJSON(s *models.ChargeSummary) chargeSummaryJSON {
	rows := make([]ledgerRowJSON, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, ledgerRowJSON{
			CustomerID:          r.CustomerID,
			Date:                r.Date.Format(models.DateLayout),
			Day:                 r.Day,
			ChargedVolume:       nullable(r.ChargedVolume),
			UnitPrice:           r.UnitPrice,
			ChargedPrice:        nullable(r.ChargedPrice),
			StandMeter:          nullable(r.StandMeter),
			DeliveryPressure:    nullable(r.DeliveryPressure),
			DeliveryTemperature: nullable(r.DeliveryTemperature),
			MeterDiff:           nullable(r.MeterDiff),
		})
	}
	return chargeSummaryJSON{
		CustomerID:     s.CustomerID,
		Start:          s.Start.Format(models.DateLayout),
		End:            s.End.Format(models.DateLayout),
		Rows:           rows,
		UnitPrice:      s.UnitPrice,
		PretotalVolume: s.PretotalVolume,
		PretotalPrice:  s.PretotalPrice,
		VolumeBalance:  s.VolumeBalance,
		PriceBalance:   s.PriceBalance,
		TotalVolume:    s.TotalVolume,
		TotalPrice:     s.TotalPrice,
		TaxRate:        s.TaxRate,
		ChargedTax:     s.ChargedTax,
		TotalWithTax:   s.TotalWithTax,
	}
}
