package core

import (
	"math"

	"stock-watch/src/models"
)

// OHLCV summarises a bar series.
type OHLCV struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// -----------------------------------------------------------------------------

// ComputeOHLCV folds bars (oldest first) into open/high/low/close/volume.
func ComputeOHLCV(bars []models.MBar) OHLCV {
	if len(bars) == 0 {
		return OHLCV{}
	}

	out := OHLCV{
		Open:  bars[0].Open,
		Close: bars[len(bars)-1].Close,
		High:  -math.MaxFloat64,
		Low:   math.MaxFloat64,
	}
	for _, b := range bars {
		out.High = math.Max(out.High, b.High)
		out.Low = math.Min(out.Low, b.Low)
		out.Volume += b.Volume
	}
	return out
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the change from previous to current in percent.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous * 100
}

// -----------------------------------------------------------------------------

// Closes extracts the close of each bar, keeping at most the last limit values.
func Closes(bars []models.MBar, limit int) []float64 {
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
