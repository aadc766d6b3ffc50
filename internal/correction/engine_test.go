package correction

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/energimultiguna/cngops/pkg/models"
)

func num(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func reading(at time.Time, meter, pressure, temp sql.NullFloat64) models.DeliveryReading {
	return models.DeliveryReading{
		CustomerID:          "0110005",
		ArrivalTime:         at,
		StandMeter:          meter,
		DeliveryPressure:    pressure,
		DeliveryTemperature: temp,
	}
}

func formula(diff, p, t float64) float64 {
	return diff * (p + 1.01325) / 1.01325 * 300 / (t + 273) * (1 + 0.0002*p)
}

func TestApplyWorkedExample(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	in := []models.DeliveryReading{
		reading(day, num(1000), num(4), num(25)),
		reading(day.Add(24*time.Hour), num(1500), num(5), num(27)),
	}

	out := NewEngine(DefaultConstants()).Apply(in)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].MeterDiff.Valid || out[0].CorrectedVolume.Valid {
		t.Fatalf("first reading must have no value, got %+v", out[0])
	}
	if !out[1].MeterDiff.Valid || out[1].MeterDiff.Float64 != 500 {
		t.Fatalf("diff = %+v", out[1].MeterDiff)
	}
	// 500 * 6.01325/1.01325 * 300/300 * 1.001
	if got := out[1].CorrectedVolume.Float64; math.Abs(got-2970.275) > 1e-1 {
		t.Fatalf("corrected = %v", got)
	}
}

func TestApplyMatchesFormula(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	meters := []float64{10, 410.5, 899.25, 899.25, 1620, 2400.75}
	pressures := []float64{3, 4.5, 6.25, 7, 2.5, 5.5}
	temps := []float64{20, 31.5, 28, 18.25, 35, 27}

	var in []models.DeliveryReading
	for i := range meters {
		in = append(in, reading(start.Add(time.Duration(i)*6*time.Hour), num(meters[i]), num(pressures[i]), num(temps[i])))
	}

	out := NewEngine(DefaultConstants()).Apply(in)
	for i := 1; i < len(out); i++ {
		wantDiff := meters[i] - meters[i-1]
		if out[i].MeterDiff.Float64 != wantDiff {
			t.Errorf("row %d diff = %v, want %v", i, out[i].MeterDiff.Float64, wantDiff)
		}
		want := formula(wantDiff, pressures[i], temps[i])
		if math.Abs(out[i].CorrectedVolume.Float64-want) > 1e-9 {
			t.Errorf("row %d corrected = %v, want %v", i, out[i].CorrectedVolume.Float64, want)
		}
	}
}

func TestApplySortsByArrival(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	in := []models.DeliveryReading{
		reading(base.Add(2*time.Hour), num(300), num(5), num(27)),
		reading(base, num(100), num(5), num(27)),
		reading(base.Add(time.Hour), num(150), num(5), num(27)),
	}

	out := NewEngine(DefaultConstants()).Apply(in)
	if out[1].MeterDiff.Float64 != 50 || out[2].MeterDiff.Float64 != 150 {
		t.Fatalf("diffs = %v, %v", out[1].MeterDiff.Float64, out[2].MeterDiff.Float64)
	}
	if in[0].StandMeter.Float64 != 300 {
		t.Fatalf("input slice was reordered")
	}
}

func TestApplyMissingValuePropagatesPerRow(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	in := []models.DeliveryReading{
		reading(base, num(100), num(5), num(27)),
		reading(base.Add(time.Hour), num(200), sql.NullFloat64{}, num(27)),
		reading(base.Add(2*time.Hour), sql.NullFloat64{}, num(5), num(27)),
		reading(base.Add(3*time.Hour), num(400), num(5), num(27)),
		reading(base.Add(4*time.Hour), num(450), num(5), num(27)),
	}

	out := NewEngine(DefaultConstants()).Apply(in)

	if !out[1].MeterDiff.Valid || out[1].CorrectedVolume.Valid {
		t.Errorf("row 1: diff should exist and volume should be missing: %+v", out[1])
	}
	if out[2].MeterDiff.Valid || out[3].MeterDiff.Valid {
		t.Errorf("rows touching the missing meter should have no diff")
	}
	if !out[4].CorrectedVolume.Valid {
		t.Errorf("row 4 should recover once both meters are present")
	}
}

func TestVolumeAbsoluteZeroIsNoValue(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultConstants())
	if v := e.Volume(num(10), num(5), num(-273)); v.Valid {
		t.Fatalf("expected no value, got %v", v.Float64)
	}
}

func TestApplyEmptyAndSingle(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultConstants())
	if out := e.Apply(nil); len(out) != 0 {
		t.Fatalf("empty input gave %d rows", len(out))
	}
	out := e.Apply([]models.DeliveryReading{reading(time.Now(), num(1), num(1), num(1))})
	if len(out) != 1 || out[0].CorrectedVolume.Valid {
		t.Fatalf("single reading = %+v", out)
	}
}
