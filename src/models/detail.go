package models

// MQuoteInfo is the provider's metadata bag. Nil pointers mean the provider
// did not return a numeric value.
type MQuoteInfo struct {
	LongName         string
	Sector           string
	Industry         string
	MarketCap        *float64
	ForwardPE        *float64
	TrailingEps      *float64
	Beta             *float64
	DividendYield    *float64
	FiftyTwoWeekHigh *float64
	FiftyTwoWeekLow  *float64
}

// MDetailRow is a single labelled statistic on the detail page.
type MDetailRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type MHistoryPoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type MNewsItem struct {
	Title       string `json:"title"`
	Publisher   string `json:"publisher"`
	Link        string `json:"link"`
	PublishTime string `json:"publish_time"`
	Summary     string `json:"summary"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// MStockDetail is the synchronous per-symbol view for one timeframe.
type MStockDetail struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Timeframe     string          `json:"timeframe"`
	Price         float64         `json:"price"`
	Change        float64         `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	Details       []MDetailRow    `json:"details"`
	History       []MHistoryPoint `json:"history"`
	News          []MNewsItem     `json:"news"`
}
