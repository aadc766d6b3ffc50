package invoice

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const invoiceSheet = "Invoice"

const (
	fontFamily  = "Times New Roman"
	borderColor = "4C2882"
	headerFill  = "FFD1DC"
)

// Layout holds the issuer details printed on every invoice
type Layout struct {
	Signer      string
	SignerTitle string
	BankLines   []string
}

// sheetWriter writes cells and keeps the first error
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(col, row int, value any, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if w.err = w.f.SetCellValue(w.sheet, cell, value); w.err != nil {
		return
	}
	if style != 0 {
		w.err = w.f.SetCellStyle(w.sheet, cell, cell, style)
	}
}

func (w *sheetWriter) merge(fromCol, fromRow, toCol, toRow int, value any, style int) {
	if w.err != nil {
		return
	}
	from, _ := excelize.CoordinatesToCellName(fromCol, fromRow)
	to, _ := excelize.CoordinatesToCellName(toCol, toRow)
	if w.err = w.f.MergeCell(w.sheet, from, to); w.err != nil {
		return
	}
	w.set(fromCol, fromRow, value, 0)
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, from, to, style)
	}
}

type styleDef struct {
	dst   *int
	style *excelize.Style
}

type invoiceStyles struct {
	title, header, normal, tableHeader, cell, cellRight, totalLeft, totalRight int
}

func newInvoiceStyles(f *excelize.File) (*invoiceStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderColor, Style: 1},
		{Type: "right", Color: borderColor, Style: 1},
		{Type: "top", Color: borderColor, Style: 1},
		{Type: "bottom", Color: borderColor, Style: 1},
	}
	font := func(size float64, bold bool) *excelize.Font {
		return &excelize.Font{Family: fontFamily, Size: size, Bold: bold}
	}

	s := &invoiceStyles{}
	defs := []styleDef{
		{&s.title, &excelize.Style{Font: font(16, true), Alignment: &excelize.Alignment{Horizontal: "center"}}},
		{&s.header, &excelize.Style{Font: font(12, true)}},
		{&s.normal, &excelize.Style{Font: font(12, false)}},
		{&s.tableHeader, &excelize.Style{
			Font:      font(12, true),
			Border:    border,
			Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		}},
		{&s.cell, &excelize.Style{Font: font(12, false), Border: border}},
		{&s.cellRight, &excelize.Style{Font: font(12, false), Border: border, Alignment: &excelize.Alignment{Horizontal: "right"}}},
		{&s.totalLeft, &excelize.Style{Font: font(12, true), Border: border, Alignment: &excelize.Alignment{Horizontal: "left"}}},
		{&s.totalRight, &excelize.Style{Font: font(12, true), Border: border, Alignment: &excelize.Alignment{Horizontal: "right"}}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("creating style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

// WriteWorkbook renders the invoice as a single-sheet xlsx workbook
func WriteWorkbook(out io.Writer, d *Data, layout Layout) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	st, err := newInvoiceStyles(f)
	if err != nil {
		return err
	}

	widths := map[string]float64{"A": 5, "B": 40, "C": 15, "D": 15, "E": 15, "F": 20, "G": 5}
	for col, width := range widths {
		if err := f.SetColWidth(invoiceSheet, col, col, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	showGrid := false
	if err := f.SetSheetView(invoiceSheet, 0, &excelize.ViewOptions{ShowGridLines: &showGrid}); err != nil {
		return fmt.Errorf("hiding gridlines: %w", err)
	}

	w := &sheetWriter{f: f, sheet: invoiceSheet}

	w.merge(2, 3, 6, 3, "INVOICE", st.title)

	w.set(2, 5, "Ditagihkan kepada:", st.normal)
	w.set(2, 6, d.CustomerName, st.header)
	for i, line := range d.AddressLines {
		w.set(2, 7+i, line, st.normal)
	}

	meta := []struct{ label, value string }{
		{"No. Invoice", d.InvoiceNumber},
		{"ID Pelanggan", d.CustomerID},
		{"Periode", d.Period},
		{"Tgl. Invoice", d.Date},
		{"Tgl. Jatuh Tempo", d.DueDate},
	}
	for i, m := range meta {
		w.set(5, 6+i, m.label, st.normal)
		w.set(6, 6+i, ": "+m.value, st.normal)
	}

	headers := []string{"Item", "Volume (Sm3)", "Harga (Rp/Sm3)", "Nilai Tagihan (Rp)", "Keterangan"}
	for i, h := range headers {
		w.set(2+i, 13, h, st.tableHeader)
	}

	row := 14
	for _, item := range d.Items {
		w.set(2, row, item.Description, st.cell)
		w.set(3, row, item.Volume, st.cellRight)
		w.set(4, row, item.UnitPrice, st.cellRight)
		w.set(5, row, item.Price, st.cellRight)
		w.set(6, row, item.Note, st.cell)
		row++
	}

	w.merge(2, row, 4, row, fmt.Sprintf("Pemakaian Gas CNG Periode %s )*", d.Period), st.totalLeft)
	w.set(5, row, d.UsagePrice, st.totalRight)
	w.set(6, row, "", st.cell)

	totals := []struct{ label, value string }{
		{"DPP  )**", d.DPPPrice},
		{"PPN", d.ChargedTax},
		{"TOTAL", d.TotalTaxed},
	}
	for i, t := range totals {
		r := row + 1 + i
		w.set(4, r, t.label, st.totalLeft)
		w.set(5, r, t.value, st.totalRight)
		w.set(6, r, "", st.cell)
	}

	sign := row + 6
	w.set(5, sign, "Hormat kami,", st.normal)
	w.set(5, sign+4, layout.Signer, st.normal)
	w.set(5, sign+5, layout.SignerTitle, st.normal)

	notes := sign + 10
	w.set(2, notes, "Catatan", st.header)
	w.set(2, notes+1, ")* Pemakaian gas CNG mendapatkan fasilitas beban PPN", st.normal)
	w.set(2, notes+2, ")** Nilai yang harus dibayarkan adalah dasar pengenaan pajak", st.normal)
	w.set(2, notes+4, "Pembayaran harap transfer ke:", st.header)
	for i, line := range layout.BankLines {
		w.set(2, notes+5+i, line, st.normal)
	}

	if w.err != nil {
		return fmt.Errorf("writing invoice cells: %w", w.err)
	}
	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
