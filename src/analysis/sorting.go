package analysis

import (
	"sort"

	"stock-watch/src/analysis/core"
	"stock-watch/src/models"
)

// Sort keys accepted by the list and screener views.
const (
	SortSymbol        = "symbol"
	SortPrice         = "price"
	SortChange        = "change"
	SortPercentChange = "percent_change"
	SortVolume        = "volume"
	SortMarketCap     = "market_cap"
	SortName          = "name"
)

type snapshotLess func(a, b *models.MSnapshot) bool

var snapshotOrder = map[string]snapshotLess{
	SortPrice:         func(a, b *models.MSnapshot) bool { return a.Price > b.Price },
	SortChange:        func(a, b *models.MSnapshot) bool { return a.Change > b.Change },
	SortPercentChange: func(a, b *models.MSnapshot) bool { return a.PercentChange > b.PercentChange },
	SortVolume: func(a, b *models.MSnapshot) bool {
		return core.ParseLargeNumber(a.Volume) > core.ParseLargeNumber(b.Volume)
	},
	SortMarketCap: func(a, b *models.MSnapshot) bool {
		return core.ParseLargeNumber(a.MarketCap) > core.ParseLargeNumber(b.MarketCap)
	},
	SortName: func(a, b *models.MSnapshot) bool { return a.Name > b.Name },
}

// -----------------------------------------------------------------------------

// NormalizeSortKey maps unknown keys to symbol order.
func NormalizeSortKey(sortBy string) string {
	if _, ok := snapshotOrder[sortBy]; ok {
		return sortBy
	}
	return SortSymbol
}

// -----------------------------------------------------------------------------

// SortSnapshots returns a sorted copy. Symbol order is ascending, every other
// key descending. Ties keep their input order.
func SortSnapshots(snapshots []*models.MSnapshot, sortBy string) []*models.MSnapshot {
	out := make([]*models.MSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s != nil {
			out = append(out, s)
		}
	}

	less, ok := snapshotOrder[sortBy]
	if !ok {
		less = func(a, b *models.MSnapshot) bool { return a.Symbol < b.Symbol }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
