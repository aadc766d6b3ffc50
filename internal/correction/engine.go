// Package correction converts stand meter deltas into volume at reference
// conditions.
//
//	diff      = meter[i] - meter[i-1]
//	corrected = diff * (p + Patm)/Patm * Tref/(t + Toff) * (1 + CPF*p)
//
// where p is the delivery pressure in bar gauge and t the gas temperature in
// degrees Celsius.
package correction

import (
	"database/sql"
	"sort"

	"github.com/energimultiguna/cngops/internal/config"
	"github.com/energimultiguna/cngops/pkg/models"
)

// Constants parameterizes the correction formula
type Constants struct {
	AtmosphericPressure   float64
	CompressibilityFactor float64
	ReferenceTemperature  float64
	KelvinOffset          float64
}

// DefaultConstants returns the constants used when nothing is configured
func DefaultConstants() Constants {
	return Constants{
		AtmosphericPressure:   1.01325,
		CompressibilityFactor: 0.0002,
		ReferenceTemperature:  300,
		KelvinOffset:          273,
	}
}

// ConstantsFromConfig reads the constants from configuration
func ConstantsFromConfig(cfg *config.Config) Constants {
	return Constants{
		AtmosphericPressure:   cfg.GetAtmosphericPressure(),
		CompressibilityFactor: cfg.GetCompressibilityFactor(),
		ReferenceTemperature:  cfg.GetReferenceTemperature(),
		KelvinOffset:          cfg.GetKelvinOffset(),
	}
}

// Engine applies the correction to reading sequences
type Engine struct {
	c Constants
}

// NewEngine creates an engine with fixed constants
func NewEngine(c Constants) *Engine {
	return &Engine{c: c}
}

// Constants returns the constants the engine was built with
func (e *Engine) Constants() Constants {
	return e.c
}

// Apply annotates one partition (one customer or one transport) with meter
// deltas and corrected volumes. The input is ordered by arrival time; ties keep
// their input order. The first reading has no predecessor and gets no value.
func (e *Engine) Apply(readings []models.DeliveryReading) []models.CorrectedReading {
	ordered := make([]models.DeliveryReading, len(readings))
	copy(ordered, readings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ArrivalTime.Before(ordered[j].ArrivalTime)
	})

	out := make([]models.CorrectedReading, len(ordered))
	for i, cur := range ordered {
		out[i].DeliveryReading = cur
		if i == 0 {
			continue
		}
		prev := ordered[i-1]
		diff := sub(cur.StandMeter, prev.StandMeter)
		out[i].MeterDiff = diff
		out[i].CorrectedVolume = e.Volume(diff, cur.DeliveryPressure, cur.DeliveryTemperature)
	}
	return out
}

// Volume corrects a single meter delta. Any missing input, or a temperature
// at absolute zero, yields no value.
func (e *Engine) Volume(diff, pressure, temperature sql.NullFloat64) sql.NullFloat64 {
	if !diff.Valid || !pressure.Valid || !temperature.Valid {
		return sql.NullFloat64{}
	}
	absT := temperature.Float64 + e.c.KelvinOffset
	if absT == 0 {
		return sql.NullFloat64{}
	}
	p := pressure.Float64
	v := diff.Float64 *
		(p + e.c.AtmosphericPressure) / e.c.AtmosphericPressure *
		e.c.ReferenceTemperature / absT *
		(1 + e.c.CompressibilityFactor*p)
	return sql.NullFloat64{Float64: v, Valid: true}
}

func sub(a, b sql.NullFloat64) sql.NullFloat64 {
	if !a.Valid || !b.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: a.Float64 - b.Float64, Valid: true}
}
