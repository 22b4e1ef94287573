package dashboard

import (
	"context"
	"slices"
	"strings"

	"stock-watch/src/models"
)

// Search resolves a query against the default symbols and, for unknown
// tickers, a live fetch:
//  1. an exact default-symbol match is served from the cache;
//  2. otherwise the query itself is fetched and cached on success;
//  3. default symbols containing the query follow, from the cache.
//
// Results are de-duplicated in first-seen order and capped.
func (d *Dashboard) Search(ctx context.Context, query string) []*models.MSnapshot {
	query = normalizeSymbol(query)
	results := []*models.MSnapshot{}
	if query == "" {
		return results
	}

	limit := d.Config.Search.MaxResults
	seen := make(map[string]bool)
	add := func(s *models.MSnapshot) {
		if s == nil || seen[s.Symbol] || (limit > 0 && len(results) >= limit) {
			return
		}
		seen[s.Symbol] = true
		results = append(results, s)
	}

	if slices.Contains(d.DefaultSymbols, query) {
		if snap, ok := d.Cache.Get(query); ok {
			add(snap)
		}
	} else if snap := d.Fetcher.FetchStock(ctx, query); snap != nil {
		d.Cache.Put(query, snap)
		add(snap)
	}

	for _, sym := range d.DefaultSymbols {
		if !strings.Contains(sym, query) {
			continue
		}
		if snap, ok := d.Cache.Get(sym); ok {
			add(snap)
		}
	}

	d.Logger.Debug("Search %q returned %d results", query, len(results))
	return results
}
