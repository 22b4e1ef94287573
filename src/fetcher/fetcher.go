package fetcher

import (
	"context"
	"strings"
	"time"

	"stock-watch/src/analysis/core"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"
	"stock-watch/src/utils"
)

const HistoryDateLayout = "2006-01-02 15:04:05"

// StockFetcher turns provider responses into snapshots and detail views.
// Every failure is logged and reported as "no data".
type StockFetcher struct {
	Provider    interfaces.IMarketDataProvider
	Logger      *logger.Logger
	ChartPoints int
	NewsLimit   int
	WithMktCap  bool
	now         func() time.Time
}

// -----------------------------------------------------------------------------

func NewStockFetcher(cfg *models.MConfig, provider interfaces.IMarketDataProvider, log *logger.Logger) *StockFetcher {
	return &StockFetcher{
		Provider:    provider,
		Logger:      log,
		ChartPoints: cfg.DataSource.ChartPoints,
		NewsLimit:   cfg.DataSource.NewsLimit,
		WithMktCap:  cfg.DataSource.IncludeMarketCap,
		now:         time.Now,
	}
}

// -----------------------------------------------------------------------------

// FetchStock builds the list snapshot from today's one-minute bars.
func (f *StockFetcher) FetchStock(ctx context.Context, symbol string) *models.MSnapshot {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil
	}

	bars, meta, err := f.Provider.Chart(ctx, symbol, snapshotRange, snapshotInterval)
	if err != nil {
		f.Logger.Error("Error fetching data for %s: %v", symbol, err)
		return nil
	}
	if len(bars) == 0 {
		f.Logger.Warning("No data available for symbol: %s", symbol)
		return nil
	}

	summary := core.ComputeOHLCV(bars)
	change := summary.Close - summary.Open
	now := f.now()

	snap := &models.MSnapshot{
		Symbol:        symbol,
		Name:          displayName(meta, symbol),
		Price:         core.Round2(summary.Close),
		Change:        core.Round2(change),
		PercentChange: core.Round2(core.CalculateChangePercent(summary.Close, summary.Open)),
		Volume:        core.FormatLargeNumber(summary.Volume),
		ChartData:     core.Closes(bars, f.ChartPoints),
		UpdatedAt:     now.Format("15:04:05"),
		FetchedAt:     now,
	}

	if f.WithMktCap {
		if info, err := f.Provider.QuoteInfo(ctx, symbol); err != nil {
			f.Logger.Debug("No market cap for %s: %v", symbol, err)
		} else if info.MarketCap != nil {
			snap.MarketCap = core.FormatLargeNumber(*info.MarketCap)
		}
	}

	return snap
}

// -----------------------------------------------------------------------------

// FetchDetail builds the detail view for a timeframe key (unknown keys mean 1d).
func (f *StockFetcher) FetchDetail(ctx context.Context, symbol, timeframe string) *models.MStockDetail {
	h := f.fetchHistory(ctx, symbol, timeframe)
	if h == nil {
		return nil
	}

	// Missing metadata degrades to "N/A" rows rather than failing the page.
	info, err := f.Provider.QuoteInfo(ctx, h.detail.Symbol)
	if err != nil {
		f.Logger.Debug("Quote summary unavailable for %s: %v", h.detail.Symbol, err)
		info = &models.MQuoteInfo{}
	}
	if info.LongName != "" {
		h.detail.Name = info.LongName
	}

	h.detail.Details = detailRows(h.summary, info)
	h.detail.News = f.fetchNews(ctx, h.detail.Symbol)
	return h.detail
}

// -----------------------------------------------------------------------------

// FetchHistory is FetchDetail without the metadata and news requests: one
// chart call, enough to draw the price history.
func (f *StockFetcher) FetchHistory(ctx context.Context, symbol, timeframe string) *models.MStockDetail {
	h := f.fetchHistory(ctx, symbol, timeframe)
	if h == nil {
		return nil
	}
	h.detail.Details = []models.MDetailRow{}
	h.detail.News = []models.MNewsItem{}
	return h.detail
}

// -----------------------------------------------------------------------------

type history struct {
	detail  *models.MStockDetail
	summary core.OHLCV
}

func (f *StockFetcher) fetchHistory(ctx context.Context, symbol, timeframe string) *history {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil
	}
	tf := ResolveTimeframe(timeframe)

	bars, meta, err := f.Provider.Chart(ctx, symbol, tf.Range, tf.Interval)
	if err != nil {
		f.Logger.Error("Error fetching %s history for %s: %v", tf.Key, symbol, err)
		return nil
	}

	cal := utils.GetCalendar(symbol)
	bars = cal.FilterBars(bars, tf.Interval)
	if len(bars) == 0 {
		f.Logger.Warning("No %s history for symbol: %s", tf.Key, symbol)
		return nil
	}

	summary := core.ComputeOHLCV(bars)
	change := summary.Close - summary.Open

	points := make([]models.MHistoryPoint, len(bars))
	for i, b := range bars {
		points[i] = models.MHistoryPoint{
			Date:  time.Unix(b.Timestamp, 0).In(cal.Timezone).Format(HistoryDateLayout),
			Price: core.Round2(b.Close),
		}
	}

	return &history{
		summary: summary,
		detail: &models.MStockDetail{
			Symbol:        symbol,
			Name:          displayName(meta, symbol),
			Timeframe:     tf.Key,
			Price:         core.Round2(summary.Close),
			Change:        core.Round2(change),
			ChangePercent: core.Round2(core.CalculateChangePercent(summary.Close, summary.Open)),
			History:       points,
		},
	}
}

// -----------------------------------------------------------------------------

func (f *StockFetcher) fetchNews(ctx context.Context, symbol string) []models.MNewsItem {
	news, err := f.Provider.News(ctx, symbol, f.NewsLimit)
	if err != nil {
		f.Logger.Debug("News unavailable for %s: %v", symbol, err)
		return []models.MNewsItem{}
	}
	if news == nil {
		return []models.MNewsItem{}
	}
	if len(news) > f.NewsLimit {
		news = news[:f.NewsLimit]
	}
	return news
}

// -----------------------------------------------------------------------------

func detailRows(s core.OHLCV, info *models.MQuoteInfo) []models.MDetailRow {
	open, high, low := s.Open, s.High, s.Low
	return []models.MDetailRow{
		{Label: "Open", Value: core.FormatMoney(&open)},
		{Label: "High", Value: core.FormatMoney(&high)},
		{Label: "Low", Value: core.FormatMoney(&low)},
		{Label: "Volume", Value: core.FormatCount(s.Volume)},
		{Label: "Market Cap", Value: core.FormatDollars(info.MarketCap)},
		{Label: "P/E Ratio", Value: core.FormatRatio(info.ForwardPE)},
		{Label: "EPS", Value: core.FormatRatio(info.TrailingEps)},
		{Label: "Beta", Value: core.FormatRatio(info.Beta)},
		{Label: "Dividend Yield", Value: core.FormatPercent(info.DividendYield)},
		{Label: "52 Week High", Value: core.FormatMoney(info.FiftyTwoWeekHigh)},
		{Label: "52 Week Low", Value: core.FormatMoney(info.FiftyTwoWeekLow)},
	}
}

func displayName(meta models.MChartMeta, symbol string) string {
	switch {
	case meta.LongName != "":
		return meta.LongName
	case meta.ShortName != "":
		return meta.ShortName
	default:
		return symbol
	}
}
