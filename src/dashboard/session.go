package dashboard

import "stock-watch/src/models"

// Session keys
const (
	SessionUsername  = "username"
	SessionWatchlist = "watchlist"
)

// Session is the slice of a cookie session the dashboard needs.
// gin-contrib/sessions.Session satisfies it.
type Session interface {
	Get(key interface{}) interface{}
	Set(key interface{}, val interface{})
	Delete(key interface{})
	Clear()
}

// -----------------------------------------------------------------------------

// WatchlistFromSession decodes the stored watchlist; anything unexpected
// reads as empty.
func WatchlistFromSession(sess Session) models.MWatchlist {
	switch v := sess.Get(SessionWatchlist).(type) {
	case []string:
		return append(models.MWatchlist(nil), v...)
	case models.MWatchlist:
		return append(models.MWatchlist(nil), v...)
	default:
		return models.MWatchlist{}
	}
}

func saveWatchlist(sess Session, w models.MWatchlist) {
	sess.Set(SessionWatchlist, []string(w))
}

// Username returns the logged-in user, or "".
func Username(sess Session) string {
	name, _ := sess.Get(SessionUsername).(string)
	return name
}
