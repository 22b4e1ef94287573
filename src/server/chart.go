package server

import (
	"bytes"
	"fmt"
	"time"

	"stock-watch/src/fetcher"
	"stock-watch/src/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderHistoryChart renders the detail history as a PNG line chart.
// Intraday charts label the x axis with clock times, the rest with dates.
func RenderHistoryChart(detail *models.MStockDetail, intraday bool) ([]byte, error) {
	xValues := make([]time.Time, 0, len(detail.History))
	yValues := make([]float64, 0, len(detail.History))
	for _, p := range detail.History {
		ts, err := time.Parse(fetcher.HistoryDateLayout, p.Date)
		if err != nil {
			continue
		}
		xValues = append(xValues, ts)
		yValues = append(yValues, p.Price)
	}
	if len(xValues) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(xValues))
	}

	color := "16a34a" // green-600
	if yValues[len(yValues)-1] < yValues[0] {
		color = "dc2626" // red-600
	}

	labelLayout := "Jan 02"
	if intraday {
		labelLayout = "15:04"
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s (%s)", detail.Symbol, detail.Timeframe),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format(labelLayout)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: detail.Symbol,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex(color),
					StrokeWidth: 2,
				},
				XValues: xValues,
				YValues: yValues,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
