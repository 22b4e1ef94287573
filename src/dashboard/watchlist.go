package dashboard

import (
	"slices"
)

// -----------------------------------------------------------------------------

// AddToWatchlist appends symbol to the session watchlist.
func (d *Dashboard) AddToWatchlist(sess Session, symbol string) (string, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return "", ErrMissingSymbol
	}

	watched := WatchlistFromSession(sess)
	if len(watched) >= d.Config.Watchlist.MaxItems {
		return symbol, ErrWatchlistFull
	}
	if watched.Contains(symbol) {
		return symbol, ErrAlreadyWatched
	}

	saveWatchlist(sess, append(watched, symbol))
	return symbol, nil
}

// -----------------------------------------------------------------------------

// RemoveFromWatchlist drops symbol; removed is false when it was not watched.
func (d *Dashboard) RemoveFromWatchlist(sess Session, symbol string) (string, bool) {
	symbol = normalizeSymbol(symbol)
	watched := WatchlistFromSession(sess)

	idx := slices.Index(watched, symbol)
	if idx < 0 {
		return symbol, false
	}

	saveWatchlist(sess, slices.Delete(watched, idx, idx+1))
	return symbol, true
}
