package models

import "slices"

// MWatchlist is the ordered, duplicate-free list of watched symbols kept in
// the user session.
type MWatchlist []string

func (w MWatchlist) Contains(symbol string) bool {
	return slices.Contains(w, symbol)
}
