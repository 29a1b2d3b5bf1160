package report

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"procurement-audit/internal/audit"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("report: no audited rows to plot")

var (
	riskColor  = drawing.ColorFromHex("d62728")
	clearColor = drawing.ColorFromHex("2ca02c")
)

// ItemVariance is one bar of the chart: the highest price difference seen
// for an item.
type ItemVariance struct {
	Item         string
	PriceDiffPct decimal.Decimal
	Risk         bool
}

// ItemVariances groups records by item in first-seen order.
func ItemVariances(records []audit.AuditedRecord) []ItemVariance {
	index := make(map[string]int)
	out := make([]ItemVariance, 0)

	for _, rec := range records {
		i, ok := index[rec.Item]
		if !ok {
			index[rec.Item] = len(out)
			out = append(out, ItemVariance{Item: rec.Item, PriceDiffPct: rec.PriceDiffPct, Risk: rec.IsRisk()})
			continue
		}
		if rec.PriceDiffPct.GreaterThan(out[i].PriceDiffPct) {
			out[i].PriceDiffPct = rec.PriceDiffPct
		}
		out[i].Risk = out[i].Risk || rec.IsRisk()
	}
	return out
}

// ChartOptions size the rendered PNG.
type ChartOptions struct {
	Width  int
	Height int
}

// WriteChartPNG renders a bar chart of price difference per item. Bars above
// the threshold use the risk colour.
func WriteChartPNG(w io.Writer, res audit.Result, opts ChartOptions) error {
	bars := ItemVariances(res.Records)
	if len(bars) == 0 {
		return ErrNoData
	}

	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}

	threshold := res.Sensitivity.InexactFloat64()
	lo, hi := 0.0, threshold
	values := make([]chart.Value, 0, len(bars))
	for _, bar := range bars {
		v := bar.PriceDiffPct.InexactFloat64()
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}

		color := clearColor
		if bar.Risk {
			color = riskColor
		}
		values = append(values, chart.Value{
			Label: bar.Item,
			Value: v,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if hi <= lo {
		hi = lo + 1
	}

	barWidth := (opts.Width - 120) / (len(values) * 2)
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 4 {
		barWidth = 4
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Price difference %% by item (threshold %s%%)", res.Sensitivity.String()),
		Width:      opts.Width,
		Height:     opts.Height,
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		Background: chart.Style{
			Padding: chart.Box{Top: 50},
		},
		YAxis: chart.YAxis{
			Name:  "Price_Diff_%",
			Range: &chart.ContinuousRange{Min: lo, Max: hi * 1.1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: values,
	}

	return graph.Render(chart.PNG, w)
}

// WriteChartFile renders the chart to path, creating parent directories.
func WriteChartFile(path string, res audit.Result, opts ChartOptions) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteChartPNG(file, res, opts)
}
