package report

import (
	"strings"
	"time"

	"github.com/energimultiguna/cngops/pkg/models"
)

// Delivery report field names
const (
	FieldDeliveryDate       = "delivery_date"
	FieldArrivalTime        = "delivery_arrival_time"
	FieldCustomerID         = "customer_id"
	FieldRoute              = "delivery_route"
	FieldPlateNumber        = "transport_plate_number"
	FieldPreBufferPressure  = "pre_buffer_pressure"
	FieldStandMeter         = "delivery_stand_meter"
	FieldDeliveryPressure   = "delivery_pressure"
	FieldDeliveryTemp       = "delivery_temperature"
	FieldPostBufferPressure = "post_buffer_pressure"
	FieldBankPressure       = "transport_bank_pressure"
)

// Layouts accepted in delivery reports
const (
	DeliveryDateLayout = "2-Jan-06"
	ArrivalTimeLayout  = "15:04"
)

var deliveryFields = []string{
	FieldDeliveryDate,
	FieldArrivalTime,
	FieldCustomerID,
	FieldRoute,
	FieldPlateNumber,
	FieldPreBufferPressure,
	FieldStandMeter,
	FieldDeliveryPressure,
	FieldDeliveryTemp,
	FieldPostBufferPressure,
	FieldBankPressure,
}

// ParseDelivery parses a delivery report into a reading with its derived id
func ParseDelivery(text string) (*models.DeliveryReading, error) {
	return parseDelivery(ParseFields(text), ArrivalTimeLayout)
}

// ParseDeliveryFields builds a reading from an already split field mapping.
// timeLayout selects the arrival time layout; seed files use "15.04".
func ParseDeliveryFields(fields Fields, timeLayout string) (*models.DeliveryReading, error) {
	return parseDelivery(fields, timeLayout)
}

func parseDelivery(fields Fields, timeLayout string) (*models.DeliveryReading, error) {
	if err := fields.RequireAll(deliveryFields...); err != nil {
		return nil, err
	}

	customerID, err := fields.Require(FieldCustomerID)
	if err != nil {
		return nil, err
	}
	plate, err := fields.Require(FieldPlateNumber)
	if err != nil {
		return nil, err
	}
	dateStr, err := fields.Require(FieldDeliveryDate)
	if err != nil {
		return nil, err
	}
	timeStr, err := fields.Require(FieldArrivalTime)
	if err != nil {
		return nil, err
	}

	arrival, err := ArrivalTimestamp(dateStr, timeStr, timeLayout)
	if err != nil {
		return nil, err
	}

	var route string
	if v := fields[FieldRoute]; v != nil {
		route = *v
	}

	return &models.DeliveryReading{
		DeliveryID:          DeliveryID(customerID, arrival),
		CustomerID:          customerID,
		Route:               route,
		PlateNumber:         plate,
		ArrivalTime:         arrival,
		PreBufferPressure:   fields.Float(FieldPreBufferPressure),
		StandMeter:          fields.Float(FieldStandMeter),
		DeliveryPressure:    fields.Float(FieldDeliveryPressure),
		DeliveryTemperature: fields.Float(FieldDeliveryTemp),
		PostBufferPressure:  fields.Float(FieldPostBufferPressure),
		BankPressure:        fields.Float(FieldBankPressure),
	}, nil
}

// ArrivalTimestamp combines a DD-Mon-YY date and a clock time into one timestamp
func ArrivalTimestamp(date, clock, timeLayout string) (time.Time, error) {
	day, err := time.Parse(DeliveryDateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, &DateFormatError{Field: FieldDeliveryDate, Value: date, Layout: "DD-Mon-YY"}
	}
	tod, err := time.Parse(timeLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, &DateFormatError{Field: FieldArrivalTime, Value: clock, Layout: layoutLabel(timeLayout)}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC), nil
}

// DeliveryID derives the natural key of a delivery: the customer id followed by
// the arrival timestamp to the minute, separators removed.
func DeliveryID(customerID string, arrival time.Time) string {
	stamp := stripKey(arrival.Format(models.TimestampLayout), '-')
	return customerID + stamp[:len(stamp)-2]
}

func layoutLabel(layout string) string {
	return strings.NewReplacer("15", "HH", "04", "MM").Replace(layout)
}
