package dashboard

import (
	"context"
	"errors"
	"strings"

	"stock-watch/src/analysis"
	"stock-watch/src/cache"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNoData             = errors.New("no data available")
	ErrMissingSymbol      = errors.New("symbol is required")
	ErrWatchlistFull      = errors.New("watchlist is full")
	ErrAlreadyWatched     = errors.New("symbol already in watchlist")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Dashboard holds the request-side logic behind every endpoint.
type Dashboard struct {
	Config         *models.MConfig
	Cache          *cache.StockCache
	Fetcher        interfaces.IStockFetcher
	DB             interfaces.IDatabase
	Logger         *logger.Logger
	DefaultSymbols []string
	BcryptCost     int
}

// IndexView is the payload of the index page.
type IndexView struct {
	Stocks       []*models.MSnapshot `json:"stocks"`
	Watchlist    []*models.MSnapshot `json:"watchlist"`
	Watched      models.MWatchlist   `json:"watched_symbols"`
	MaxWatchlist int                 `json:"max_watchlist"`
	SortBy       string              `json:"sort_by"`
	Username     string              `json:"username,omitempty"`
}

// -----------------------------------------------------------------------------

func NewDashboard(cfg *models.MConfig, stockCache *cache.StockCache, fetcher interfaces.IStockFetcher, db interfaces.IDatabase, log *logger.Logger) *Dashboard {
	symbols := make([]string, len(cfg.DataSource.DefaultSymbols))
	for i, s := range cfg.DataSource.DefaultSymbols {
		symbols[i] = normalizeSymbol(s)
	}
	return &Dashboard{
		Config:         cfg,
		Cache:          stockCache,
		Fetcher:        fetcher,
		DB:             db,
		Logger:         log,
		DefaultSymbols: symbols,
		BcryptCost:     bcrypt.DefaultCost,
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// -----------------------------------------------------------------------------

// Index lists every cached snapshot in sortBy order, plus the cached
// snapshots of the session watchlist in watchlist order.
func (d *Dashboard) Index(sess Session, sortBy string) *IndexView {
	watched := WatchlistFromSession(sess)

	watchData := make([]*models.MSnapshot, 0, len(watched))
	for _, sym := range watched {
		if snap, ok := d.Cache.Get(sym); ok {
			watchData = append(watchData, snap)
		}
	}

	return &IndexView{
		Stocks:       analysis.SortSnapshots(d.Cache.Values(), sortBy),
		Watchlist:    watchData,
		Watched:      watched,
		MaxWatchlist: d.Config.Watchlist.MaxItems,
		SortBy:       analysis.NormalizeSortKey(sortBy),
		Username:     Username(sess),
	}
}

// -----------------------------------------------------------------------------

// Detail fetches the detail view synchronously (never from the cache).
func (d *Dashboard) Detail(ctx context.Context, symbol, timeframe string) (*models.MStockDetail, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrMissingSymbol
	}
	detail := d.Fetcher.FetchDetail(ctx, symbol, timeframe)
	if detail == nil {
		return nil, ErrNoData
	}
	return detail, nil
}

// -----------------------------------------------------------------------------

// History fetches only the price history, for the chart image.
func (d *Dashboard) History(ctx context.Context, symbol, timeframe string) (*models.MStockDetail, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrMissingSymbol
	}
	detail := d.Fetcher.FetchHistory(ctx, symbol, timeframe)
	if detail == nil {
		return nil, ErrNoData
	}
	return detail, nil
}

// -----------------------------------------------------------------------------

// Latest is a pure cache lookup.
func (d *Dashboard) Latest(symbol string) (*models.MSnapshot, bool) {
	return d.Cache.Get(normalizeSymbol(symbol))
}
