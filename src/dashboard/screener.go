package dashboard

import (
	"context"
	"sync"

	"stock-watch/src/analysis"
	"stock-watch/src/models"

	"golang.org/x/sync/errgroup"
)

const (
	ViewSectors    = "sectors"
	ViewIndustries = "industries"
)

// ScreenerQuery carries the screener request parameters.
type ScreenerQuery struct {
	View     string
	Sector   string
	Industry string
	SortBy   string
}

// -----------------------------------------------------------------------------

// Screener fetches every member of the chosen view's groups concurrently and
// aggregates them per group. Failed members are left out of the averages.
func (d *Dashboard) Screener(ctx context.Context, q ScreenerQuery) *models.MScreenerView {
	view := q.View
	groups := d.Config.Screener.Sectors
	selected := q.Sector
	if view == ViewIndustries {
		groups = d.Config.Screener.Industries
		selected = q.Industry
	} else {
		view = ViewSectors
	}

	snapshots := d.fetchAll(ctx, analysis.GroupMembers(groups))

	aggregates := analysis.AggregateGroups(groups, snapshots)
	analysis.SortGroups(aggregates, q.SortBy)

	out := &models.MScreenerView{
		View:   view,
		SortBy: analysis.NormalizeSortKey(q.SortBy),
		Groups: aggregates,
		Stocks: []*models.MSnapshot{},
	}

	if members, ok := groups[selected]; ok {
		out.Selected = selected
		stocks := make([]*models.MSnapshot, 0, len(members))
		for _, sym := range members {
			if snap, ok := snapshots[normalizeSymbol(sym)]; ok {
				stocks = append(stocks, snap)
			}
		}
		out.Stocks = analysis.SortSnapshots(stocks, q.SortBy)
	}

	return out
}

// -----------------------------------------------------------------------------

// fetchAll runs FetchStock over symbols with at most screener.workers in flight.
func (d *Dashboard) fetchAll(ctx context.Context, symbols []string) map[string]*models.MSnapshot {
	workers := d.Config.Screener.Workers
	if workers <= 0 {
		workers = 10
	}

	var mu sync.Mutex
	out := make(map[string]*models.MSnapshot, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, sym := range symbols {
		g.Go(func() error {
			snap := d.Fetcher.FetchStock(gctx, sym)
			if snap == nil {
				return nil
			}
			mu.Lock()
			out[sym] = snap
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never fail; missing data is simply absent

	d.Logger.Debug("Screener fetched %d/%d symbols", len(out), len(symbols))
	return out
}
