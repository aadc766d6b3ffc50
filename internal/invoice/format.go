package invoice

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatAmount renders a number with "." thousands and "," decimal separators,
// rounded half away from zero to two decimals.
func FormatAmount(v float64) string {
	rounded, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return humanize.FormatFloat("#.###,##", rounded)
}
