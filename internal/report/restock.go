package report

import (
	"strings"
	"time"
	"unicode"

	"github.com/energimultiguna/cngops/pkg/models"
)

// Restock report field names
const (
	FieldRestockDate    = "restock_date"
	FieldRestockVolume  = "restock_volume"
	FieldStationAddress = "spbg_address"
)

var restockFields = []string{
	FieldPlateNumber,
	FieldRestockDate,
	FieldRestockVolume,
	FieldStationAddress,
}

// stripKey removes whitespace, colons and any extra runes from a key part
func stripKey(s string, extra ...rune) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' {
			return -1
		}
		for _, e := range extra {
			if r == e {
				return -1
			}
		}
		return r
	}, s)
}

// ParseRestock parses a restock report into an event with its derived id
func ParseRestock(text string) (*models.RestockEvent, error) {
	return ParseRestockFields(ParseFields(text))
}

// ParseRestockFields builds a restock event from an already split field mapping
func ParseRestockFields(fields Fields) (*models.RestockEvent, error) {
	if err := fields.RequireAll(restockFields...); err != nil {
		return nil, err
	}

	plate, err := fields.Require(FieldPlateNumber)
	if err != nil {
		return nil, err
	}
	dateStr, err := fields.Require(FieldRestockDate)
	if err != nil {
		return nil, err
	}
	dateStr = strings.TrimSpace(dateStr)
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, &DateFormatError{Field: FieldRestockDate, Value: dateStr, Layout: "YYYY-MM-DD"}
	}

	volStr, err := fields.Require(FieldRestockVolume)
	if err != nil {
		return nil, err
	}
	volume := ParseNumber(volStr)
	if !volume.Valid {
		return nil, &InvalidValueError{Field: FieldRestockVolume, Value: volStr, Reason: "not a number"}
	}
	if volume.Float64 < 0 {
		return nil, &InvalidValueError{Field: FieldRestockVolume, Value: volStr, Reason: "must not be negative"}
	}

	var address string
	if v := fields[FieldStationAddress]; v != nil {
		address = *v
	}

	return &models.RestockEvent{
		RestockID:      RestockID(plate, date.Format(models.DateLayout)),
		PlateNumber:    plate,
		Date:           date,
		Volume:         volume.Float64,
		StationAddress: address,
	}, nil
}

// RestockID derives the natural key of a restock from the plate and its date
func RestockID(plate, date string) string {
	return stripKey(plate) + stripKey(date, '-')
}
