// Package invoice builds the invoice data contract from a charge summary and
// renders it, along with plain table exports, as xlsx workbooks.
package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/energimultiguna/cngops/pkg/models"
)

// Item descriptions printed on every invoice
const (
	ItemGasUsage          = "Pemakaian Gas"
	ItemMinimumAdjustment = "Penyesuaian Penyerapan Minimum Bulanan"
)

// ErrIncomplete is returned when the operator left a required invoice field empty
var ErrIncomplete = errors.New("incomplete invoice request")

const (
	addressLines        = 3
	addressWordsPerLine = 6
)

// Request carries the fields the operator types in for one invoice
type Request struct {
	InvoiceNumber string
	Period        string
	Address       string
}

// Item is one invoice line
type Item struct {
	Description string `json:"item"`
	Volume      string `json:"volume"`
	UnitPrice   string `json:"unit_price"`
	Price       string `json:"price"`
	Note        string `json:"note"`
}

// Data is everything the invoice renderer prints. Amounts are pre-formatted.
type Data struct {
	CustomerName  string    `json:"customer_name"`
	AddressLines  [3]string `json:"customer_address"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerID    string    `json:"customer_id"`
	Period        string    `json:"invoice_period"`
	Date          string    `json:"date"`
	DueDate       string    `json:"due_date"`
	Items         []Item    `json:"items"`
	UsagePrice    string    `json:"inprice"`
	DPPPrice      string    `json:"dpp_price"`
	ChargedTax    string    `json:"charged_tax"`
	TotalTaxed    string    `json:"total_taxed"`
}

// Build assembles invoice data. The invoice is dated on the summary's end date
// and falls due dueDays later.
func Build(customer *models.Customer, summary *models.ChargeSummary, req Request, dueDays int) (*Data, error) {
	if strings.TrimSpace(req.InvoiceNumber) == "" {
		return nil, fmt.Errorf("%w: invoice number is required", ErrIncomplete)
	}
	if strings.TrimSpace(req.Period) == "" {
		return nil, fmt.Errorf("%w: invoice period is required", ErrIncomplete)
	}
	address := req.Address
	if strings.TrimSpace(address) == "" {
		address = customer.Address
	}
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: customer address is required", ErrIncomplete)
	}

	unit := FormatAmount(summary.UnitPrice)
	return &Data{
		CustomerName:  customer.Name,
		AddressLines:  SplitAddress(address),
		InvoiceNumber: req.InvoiceNumber,
		CustomerID:    summary.CustomerID,
		Period:        req.Period,
		Date:          summary.End.Format(models.DateLayout),
		DueDate:       DueDate(summary.End, dueDays).Format(models.DateLayout),
		Items: []Item{
			{
				Description: ItemGasUsage,
				Volume:      FormatAmount(summary.PretotalVolume),
				UnitPrice:   unit,
				Price:       FormatAmount(summary.PretotalPrice),
			},
			{
				Description: ItemMinimumAdjustment,
				Volume:      FormatAmount(summary.VolumeBalance),
				UnitPrice:   unit,
				Price:       FormatAmount(summary.PriceBalance),
			},
		},
		UsagePrice: FormatAmount(summary.TotalPrice),
		DPPPrice:   FormatAmount(summary.TotalPrice),
		ChargedTax: FormatAmount(summary.ChargedTax),
		TotalTaxed: FormatAmount(summary.TotalWithTax),
	}, nil
}

// SplitAddress breaks an address into at most three lines of six words.
// Words past the third line are dropped.
func SplitAddress(address string) [3]string {
	var lines [addressLines]string
	words := strings.Fields(strings.ReplaceAll(address, "\n", " "))
	for i := 0; i < addressLines && len(words) > 0; i++ {
		n := min(addressWordsPerLine, len(words))
		lines[i] = strings.Join(words[:n], " ")
		words = words[n:]
	}
	return lines
}

// DueDate returns the payment due date of an invoice dated end
func DueDate(end time.Time, dueDays int) time.Time {
	return end.AddDate(0, 0, dueDays)
}
