package models

// MGroupAggregate summarises one sector or industry.
type MGroupAggregate struct {
	Name             string  `json:"name"`
	Members          int     `json:"members"`
	Counted          int     `json:"counted"` // members with data
	AvgPercentChange float64 `json:"avg_percent_change"`
	TotalVolume      string  `json:"total_volume"`
}

// MScreenerView is what the screener endpoint returns.
type MScreenerView struct {
	View     string            `json:"view"` // "sectors" or "industries"
	SortBy   string            `json:"sort_by"`
	Groups   []MGroupAggregate `json:"groups"`
	Selected string            `json:"selected,omitempty"`
	Stocks   []*MSnapshot      `json:"stocks"`
}
