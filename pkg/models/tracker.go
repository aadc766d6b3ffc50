package models

import "time"

// TrackerPoint is one sample of a cumulative series. Valid reports whether the
// underlying row had a value; the cumulative value carries forward either way.
type TrackerPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Valid bool      `json:"valid"`
}

// TrackerSeries holds the cumulative volume curves of one transport
type TrackerSeries struct {
	PlateNumber        string         `json:"transport_plate_number"`
	RestockCumulative  []TrackerPoint `json:"restock_volume_cumul"`
	OutCumulative      []TrackerPoint `json:"volume_out_cumul"`
	ConsumedCumulative []TrackerPoint `json:"volume_consumed_cumul"`
	ChargedCumulative  []TrackerPoint `json:"charged_volume_cumul"`
}

// Last returns the final point of a series, or false when it is empty
func Last(points []TrackerPoint) (TrackerPoint, bool) {
	if len(points) == 0 {
		return TrackerPoint{}, false
	}
	return points[len(points)-1], true
}
