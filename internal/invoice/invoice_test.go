package invoice

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/energimultiguna/cngops/pkg/models"
)

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0, "0,00"},
		{5, "5,00"},
		{1234.5, "1.234,50"},
		{1234567.891, "1.234.567,89"},
		{2970.2754749568217, "2.970,28"},
		{0.005, "0,01"},
		{-1500.25, "-1.500,25"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want [3]string
	}{
		{"short", "Jl. Raya 1", [3]string{"Jl. Raya 1", "", ""}},
		{"exactly six", "a b c d e f", [3]string{"a b c d e f", "", ""}},
		{"seven", "a b c d e f g", [3]string{"a b c d e f", "g", ""}},
		{"overflow dropped", "1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16 17 18 19 20",
			[3]string{"1 2 3 4 5 6", "7 8 9 10 11 12", "13 14 15 16 17 18"}},
		{"newlines", "Jl. Raya\nBekasi  KM 12", [3]string{"Jl. Raya Bekasi KM 12", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitAddress(tt.in); got != tt.want {
				t.Fatalf("SplitAddress = %q, want %q", got, tt.want)
			}
		})
	}
}

func sampleSummary() *models.ChargeSummary {
	return &models.ChargeSummary{
		CustomerID:     "0110005",
		Start:          time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC),
		UnitPrice:      8500,
		PretotalVolume: 1000.125,
		PretotalPrice:  8501062.5,
		VolumeBalance:  100,
		PriceBalance:   850000,
		TotalVolume:    1100.125,
		TotalPrice:     9351062.5,
		TaxRate:        0.11,
		ChargedTax:     1028616.875,
		TotalWithTax:   10379679.375,
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	customer := &models.Customer{CustomerID: "0110005", Name: "PT Contoh", Address: "Jl. Default"}
	d, err := Build(customer, sampleSummary(), Request{InvoiceNumber: "INV/001", Period: "W4 Desember 2024", Address: "Jl. Industri Raya No. 5 Kawasan Cikarang Bekasi Jawa Barat"}, 7)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Date != "2024-12-28" || d.DueDate != "2025-01-04" {
		t.Errorf("dates = %s, %s", d.Date, d.DueDate)
	}
	if d.AddressLines[0] != "Jl. Industri Raya No. 5 Kawasan" || d.AddressLines[1] != "Cikarang Bekasi Jawa Barat" {
		t.Errorf("address = %q", d.AddressLines)
	}
	if len(d.Items) != 2 || d.Items[0].Description != ItemGasUsage || d.Items[1].Description != ItemMinimumAdjustment {
		t.Fatalf("items = %+v", d.Items)
	}
	if d.Items[0].Volume != "1.000,13" || d.Items[1].Price != "850.000,00" || d.Items[0].UnitPrice != "8.500,00" {
		t.Errorf("item amounts = %+v", d.Items)
	}
	if d.DPPPrice != "9.351.062,50" || d.ChargedTax != "1.028.616,88" || d.TotalTaxed != "10.379.679,38" {
		t.Errorf("totals = %s %s %s", d.DPPPrice, d.ChargedTax, d.TotalTaxed)
	}

	d, err = Build(customer, sampleSummary(), Request{InvoiceNumber: "INV/002", Period: "W1"}, 7)
	if err != nil || d.AddressLines[0] != "Jl. Default" {
		t.Fatalf("stored address fallback = %+v, %v", d, err)
	}

	if _, err := Build(customer, sampleSummary(), Request{Period: "W1"}, 7); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected error without invoice number")
	}
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	customer := &models.Customer{CustomerID: "0110005", Name: "PT Contoh", Address: "Jl. Raya"}
	d, err := Build(customer, sampleSummary(), Request{InvoiceNumber: "INV/001", Period: "W4"}, 7)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	layout := Layout{Signer: "Alice Alisceon", SignerTitle: "Direktur", BankLines: []string{"Bank Utama", "(IDR) 1"}}
	if err := WriteWorkbook(&buf, d, layout); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	cells := map[string]string{
		"B3":  "INVOICE",
		"B6":  "PT Contoh",
		"F6":  ": INV/001",
		"F10": ": 2025-01-04",
		"B14": ItemGasUsage,
		"E17": "9.351.062,50",
		"D19": "TOTAL",
		"E19": "10.379.679,38",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(invoiceSheet, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	rows := []models.DeliveryReading{{
		DeliveryID:  "0110005202403050745",
		CustomerID:  "0110005",
		PlateNumber: "B 1234 XYZ",
		ArrivalTime: time.Date(2024, 3, 5, 7, 45, 0, 0, time.UTC),
		StandMeter:  sql.NullFloat64{Float64: 1500, Valid: true},
	}}

	var buf bytes.Buffer
	if err := WriteTable(&buf, DeliveryTable(rows)); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, _ := f.GetRows(exportSheet)
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[0][3] != "transport plate number" {
		t.Errorf("header = %q", got[0][3])
	}
	if got[1][4] != "2024-03-05 07:45:00" || got[1][6] != "1500" {
		t.Errorf("row = %q", got[1])
	}
}
