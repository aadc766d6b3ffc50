package tracker

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/energimultiguna/cngops/pkg/models"
)

// RenderChart writes a standalone HTML page charting the four cumulative series
func RenderChart(w io.Writer, s *models.TrackerSeries) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Tracker " + s.PlateNumber,
			Width:     "1000px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cumulative volume metrics over time",
			Subtitle: s.PlateNumber,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Volume (m3)"}),
	)

	line.AddSeries("restock volume", chartData(s.RestockCumulative)).
		AddSeries("delivered volume est.", chartData(s.OutCumulative)).
		AddSeries("consumed volume est.", chartData(s.ConsumedCumulative)).
		AddSeries("charged volume", chartData(s.ChargedCumulative))

	return line.Render(w)
}

func chartData(points []models.TrackerPoint) []opts.LineData {
	data := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		data = append(data, opts.LineData{Value: []interface{}{p.Date.Format(models.DateLayout), p.Value}})
	}
	return data
}
