package invoice

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/energimultiguna/cngops/pkg/models"
)

const (
	exportSheet        = "Sheet1"
	exportHeaderHeight = 40
	minColumnWidth     = 8
	maxColumnWidth     = 60
)

// Table is a rectangular export. Nil cells are left empty.
type Table struct {
	Headers []string
	Rows    [][]any
}

// WriteTable writes a table as an xlsx workbook. Underscores in headers are
// shown as spaces and columns are sized to their longest value.
func WriteTable(out io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	w := &sheetWriter{f: f, sheet: exportSheet}
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		label := strings.ReplaceAll(h, "_", " ")
		w.set(i+1, 1, label, headerStyle)
		widths[i] = utf8.RuneCountInString(label)
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			w.set(c+1, r+2, v, 0)
			if c < len(widths) {
				widths[c] = max(widths[c], utf8.RuneCountInString(fmt.Sprint(v)))
			}
		}
	}
	if w.err != nil {
		return fmt.Errorf("writing table cells: %w", w.err)
	}

	if err := f.SetRowHeight(exportSheet, 1, exportHeaderHeight); err != nil {
		return fmt.Errorf("setting header height: %w", err)
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width = min(max(width+2, minColumnWidth), maxColumnWidth)
		if err := f.SetColWidth(exportSheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func nullable(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

// DeliveryTable lays out stored deliveries with their storage column names
func DeliveryTable(deliveries []models.DeliveryReading) Table {
	t := Table{Headers: []string{
		"delivery_id", "customer_id", "delivery_route", "transport_plate_number",
		"arrival_timestamp", "pre_buffer_pressure", "delivery_stand_meter",
		"delivery_pressure", "delivery_temperature", "post_buffer_pressure",
		"transport_bank_pressure",
	}}
	for _, d := range deliveries {
		t.Rows = append(t.Rows, []any{
			d.DeliveryID, d.CustomerID, d.Route, d.PlateNumber,
			d.ArrivalTime.Format(models.TimestampLayout),
			nullable(d.PreBufferPressure), nullable(d.StandMeter),
			nullable(d.DeliveryPressure), nullable(d.DeliveryTemperature),
			nullable(d.PostBufferPressure), nullable(d.BankPressure),
		})
	}
	return t
}

// RestockTable lays out stored restocks
func RestockTable(restocks []models.RestockEvent) Table {
	t := Table{Headers: []string{
		"restock_id", "restock_date", "transport_plate_number", "restock_volume", "gas_station_address",
	}}
	for _, r := range restocks {
		t.Rows = append(t.Rows, []any{
			r.RestockID, r.Date.Format(models.DateLayout), r.PlateNumber, r.Volume, r.StationAddress,
		})
	}
	return t
}

// CustomerTable lays out the customer reference data
func CustomerTable(customers []models.Customer) Table {
	t := Table{Headers: []string{
		"customer_id", "customer_name", "customer_address", "subscription_type",
		"subscription_start", "liter_weight_capacity", "minimum_monthly_volume",
		"buffer_count", "applied_price",
	}}
	for _, c := range customers {
		var start, buffers any
		if !c.SubscriptionStart.IsZero() {
			start = c.SubscriptionStart.Format(models.DateLayout)
		}
		if c.BufferCount.Valid {
			buffers = c.BufferCount.Int64
		}
		t.Rows = append(t.Rows, []any{
			c.CustomerID, c.Name, c.Address, c.SubscriptionType, start,
			nullable(c.LiterWeightCapacity), nullable(c.MinimumMonthlyVolume),
			buffers, nullable(c.AppliedPrice),
		})
	}
	return t
}

// LedgerTable lays out a charge ledger
func LedgerTable(s *models.ChargeSummary) Table {
	t := Table{Headers: []string{
		"customer_id", "date", "day", "charged_volume", "unit_price", "charged_price",
		"std_meter_on_arrival", "delivery_pressure", "delivery_temperature", "std_meter_diff",
	}}
	for _, r := range s.Rows {
		t.Rows = append(t.Rows, []any{
			r.CustomerID, r.Date.Format(models.DateLayout), r.Day,
			nullable(r.ChargedVolume), r.UnitPrice, nullable(r.ChargedPrice),
			nullable(r.StandMeter), nullable(r.DeliveryPressure),
			nullable(r.DeliveryTemperature), nullable(r.MeterDiff),
		})
	}
	return t
}
