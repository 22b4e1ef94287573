package models

import "time"

// MSnapshot is the latest known quote data for one ticker symbol.
// It is never mutated after construction; refreshes replace it wholesale.
type MSnapshot struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	Volume        string    `json:"volume"`               // e.g. "52.31M"
	MarketCap     string    `json:"market_cap,omitempty"` // e.g. "3.43T"
	ChartData     []float64 `json:"chart_data"`
	UpdatedAt     string    `json:"updated_at"` // HH:MM:SS
	FetchedAt     time.Time `json:"fetched_at"`
}
