package models

// MBar is one OHLCV row returned by the market-data provider.
type MBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// MChartMeta carries the naming fields Yahoo attaches to a chart response.
type MChartMeta struct {
	Symbol       string `json:"symbol"`
	LongName     string `json:"long_name"`
	ShortName    string `json:"short_name"`
	ExchangeName string `json:"exchange_name"`
	Timezone     string `json:"timezone"`
}
