package interfaces

import (
	"context"

	"stock-watch/src/models"
)

// -----------------------------------------------------------------------------
// IMarketDataProvider is the raw market-data API. Every method reports
// failures as errors; turning them into "no data" is the fetcher's job.
// -----------------------------------------------------------------------------

type IMarketDataProvider interface {

	// Chart returns OHLCV bars for a Yahoo range/interval pair, oldest first.
	Chart(ctx context.Context, symbol, rangeStr, interval string) ([]models.MBar, models.MChartMeta, error)

	// -----------------------------------------------------------------------------

	// QuoteInfo returns the metadata bag (name, market cap, ratios, 52w range).
	QuoteInfo(ctx context.Context, symbol string) (*models.MQuoteInfo, error)

	// -----------------------------------------------------------------------------

	// News returns up to limit recent headlines for the symbol.
	News(ctx context.Context, symbol string, limit int) ([]models.MNewsItem, error)
}

// -----------------------------------------------------------------------------
// IStockFetcher never fails: missing data is reported as nil / empty.
// -----------------------------------------------------------------------------

type IStockFetcher interface {

	// FetchStock builds the list snapshot for one symbol, or nil.
	FetchStock(ctx context.Context, symbol string) *models.MSnapshot

	// -----------------------------------------------------------------------------

	// FetchDetail builds the detail view for a timeframe, or nil.
	FetchDetail(ctx context.Context, symbol, timeframe string) *models.MStockDetail

	// -----------------------------------------------------------------------------

	// FetchHistory builds the detail view without metadata rows or news, or nil.
	FetchHistory(ctx context.Context, symbol, timeframe string) *models.MStockDetail
}
