package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-watch/src/logger"
	"stock-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chartCall struct{ symbol, rangeStr, interval string }

type fakeProvider struct {
	bars     []models.MBar
	meta     models.MChartMeta
	chartErr error
	info     *models.MQuoteInfo
	infoErr  error
	news     []models.MNewsItem
	newsErr  error
	calls    []chartCall
	infoN    int
	newsN    int
}

func (p *fakeProvider) Chart(_ context.Context, symbol, rangeStr, interval string) ([]models.MBar, models.MChartMeta, error) {
	p.calls = append(p.calls, chartCall{symbol, rangeStr, interval})
	return p.bars, p.meta, p.chartErr
}

func (p *fakeProvider) QuoteInfo(context.Context, string) (*models.MQuoteInfo, error) {
	p.infoN++
	if p.info == nil && p.infoErr == nil {
		return &models.MQuoteInfo{}, nil
	}
	return p.info, p.infoErr
}

func (p *fakeProvider) News(_ context.Context, _ string, limit int) ([]models.MNewsItem, error) {
	p.newsN++
	return p.news, p.newsErr
}

func ptr(v float64) *float64 { return &v }

func newFetcher(p *fakeProvider) *StockFetcher {
	cfg := &models.MConfig{DataSource: models.MDataSourceConfig{ChartPoints: 2, NewsLimit: 5}}
	f := NewStockFetcher(cfg, p, logger.NewNopLogger("fetcher"))
	f.now = func() time.Time { return time.Date(2024, 3, 13, 14, 5, 9, 0, time.UTC) }
	return f
}

func nyUnix(t *testing.T, value string) int64 {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)
	return ts.Unix()
}

func sampleBars(t *testing.T) []models.MBar {
	return []models.MBar{
		{Timestamp: nyUnix(t, "2024-03-13 09:45"), Open: 100, High: 100.8, Low: 99.5, Close: 100.5, Volume: 1_000_000},
		{Timestamp: nyUnix(t, "2024-03-13 09:46"), Open: 100.5, High: 103, Low: 100.2, Close: 101.234, Volume: 500_000},
		{Timestamp: nyUnix(t, "2024-03-13 09:47"), Open: 101.2, High: 102.5, Low: 101, Close: 102, Volume: 1_000},
	}
}

func TestTimeframeFallback(t *testing.T) {
	assert.Equal(t, Timeframe{Key: "1w", Range: "5d", Interval: "1h"}, ResolveTimeframe("1w"))
	assert.Equal(t, Timeframe{Key: "1y", Range: "1y", Interval: "1wk"}, ResolveTimeframe("1y"))
	assert.Equal(t, ResolveTimeframe("1d"), ResolveTimeframe("10y"))
	assert.Equal(t, ResolveTimeframe("1d"), ResolveTimeframe(""))
	assert.Len(t, Timeframes(), 5)
}

func TestFetchStock_DerivedFields(t *testing.T) {
	p := &fakeProvider{bars: sampleBars(t), meta: models.MChartMeta{ShortName: "Apple"}}
	snap := newFetcher(p).FetchStock(context.Background(), "aapl")
	require.NotNil(t, snap)

	assert.Equal(t, chartCall{"AAPL", "1d", "1m"}, p.calls[0])
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, "Apple", snap.Name)
	assert.Equal(t, 102.0, snap.Price)
	assert.Equal(t, 2.0, snap.Change)
	assert.Equal(t, 2.0, snap.PercentChange)
	assert.Equal(t, "1.50M", snap.Volume)
	assert.Equal(t, []float64{101.234, 102}, snap.ChartData)
	assert.Equal(t, "14:05:09", snap.UpdatedAt)
	assert.Empty(t, snap.MarketCap)
}

func TestFetchStock_MarketCapWhenEnabled(t *testing.T) {
	p := &fakeProvider{bars: sampleBars(t), info: &models.MQuoteInfo{MarketCap: ptr(3.43e12)}}
	f := newFetcher(p)
	f.WithMktCap = true

	snap := f.FetchStock(context.Background(), "AAPL")
	require.NotNil(t, snap)
	assert.Equal(t, "3.43T", snap.MarketCap)

	p.info, p.infoErr = nil, errors.New("summary down")
	snap = f.FetchStock(context.Background(), "AAPL")
	require.NotNil(t, snap)
	assert.Empty(t, snap.MarketCap)
}

func TestFetchStock_NoDataIsNil(t *testing.T) {
	f := newFetcher(&fakeProvider{})
	assert.Nil(t, f.FetchStock(context.Background(), "ZZZZ"))
	assert.Nil(t, f.FetchStock(context.Background(), "  "))

	f = newFetcher(&fakeProvider{chartErr: errors.New("boom")})
	assert.Nil(t, f.FetchStock(context.Background(), "AAPL"))
}

func TestFetchDetail_RowsAndNAFallback(t *testing.T) {
	p := &fakeProvider{
		bars: sampleBars(t),
		info: &models.MQuoteInfo{
			LongName:      "Apple Inc.",
			MarketCap:     ptr(3_430_000_000_000),
			ForwardPE:     ptr(28.456),
			DividendYield: ptr(0.0052),
		},
		news: []models.MNewsItem{{Title: "a"}, {Title: "b"}},
	}

	d := newFetcher(p).FetchDetail(context.Background(), "AAPL", "1y")
	require.NotNil(t, d)
	assert.Equal(t, chartCall{"AAPL", "1y", "1wk"}, p.calls[0])

	assert.Equal(t, "Apple Inc.", d.Name)
	assert.Equal(t, "1y", d.Timeframe)
	assert.Equal(t, 102.0, d.Price)
	assert.Equal(t, 2.0, d.ChangePercent)

	rows := map[string]string{}
	labels := make([]string, 0, len(d.Details))
	for _, r := range d.Details {
		rows[r.Label] = r.Value
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"Open", "High", "Low", "Volume", "Market Cap", "P/E Ratio", "EPS",
		"Beta", "Dividend Yield", "52 Week High", "52 Week Low"}, labels)
	assert.Equal(t, "100.00", rows["Open"])
	assert.Equal(t, "103.00", rows["High"])
	assert.Equal(t, "99.50", rows["Low"])
	assert.Equal(t, "1,501,000", rows["Volume"])
	assert.Equal(t, "$3,430,000,000,000", rows["Market Cap"])
	assert.Equal(t, "28.46", rows["P/E Ratio"])
	assert.Equal(t, "N/A", rows["EPS"])
	assert.Equal(t, "N/A", rows["Beta"])
	assert.Equal(t, "0.52%", rows["Dividend Yield"])
	assert.Equal(t, "N/A", rows["52 Week High"])

	require.Len(t, d.History, 3)
	assert.Equal(t, "2024-03-13 09:45:00", d.History[0].Date)
	assert.Equal(t, 101.23, d.History[1].Price)
	assert.Len(t, d.News, 2)
}

func TestFetchDetail_DegradesWithoutMetadataOrNews(t *testing.T) {
	p := &fakeProvider{
		bars:    sampleBars(t),
		meta:    models.MChartMeta{LongName: "Apple Inc."},
		infoErr: errors.New("401"),
		newsErr: errors.New("timeout"),
	}

	d := newFetcher(p).FetchDetail(context.Background(), "AAPL", "bogus")
	require.NotNil(t, d)
	assert.Equal(t, "1d", d.Timeframe)
	assert.Equal(t, chartCall{"AAPL", "1d", "5m"}, p.calls[0])
	assert.Equal(t, "Apple Inc.", d.Name)
	assert.NotNil(t, d.News)
	assert.Empty(t, d.News)
	for _, r := range d.Details[4:] {
		assert.Equal(t, "N/A", r.Value, r.Label)
	}
}

func TestFetchDetail_IntradayDropsOffHoursBars(t *testing.T) {
	bars := append(sampleBars(t), models.MBar{
		Timestamp: nyUnix(t, "2024-03-13 19:00"), Open: 102, High: 102, Low: 102, Close: 150, Volume: 10,
	})
	d := newFetcher(&fakeProvider{bars: bars}).FetchDetail(context.Background(), "AAPL", "1d")
	require.NotNil(t, d)
	assert.Len(t, d.History, 3)
	assert.Equal(t, 102.0, d.Price)
}

func TestFetchDetail_NoDataIsNil(t *testing.T) {
	assert.Nil(t, newFetcher(&fakeProvider{}).FetchDetail(context.Background(), "ZZZZ", "1m"))
	assert.Nil(t, newFetcher(&fakeProvider{chartErr: errors.New("x")}).FetchDetail(context.Background(), "AAPL", "1m"))
}

func TestFetchDetail_CapsNews(t *testing.T) {
	news := make([]models.MNewsItem, 8)
	d := newFetcher(&fakeProvider{bars: sampleBars(t), news: news}).FetchDetail(context.Background(), "AAPL", "1y")
	require.NotNil(t, d)
	assert.Len(t, d.News, 5)
}

func TestFetchHistory_OnlyCallsChart(t *testing.T) {
	p := &fakeProvider{
		bars: sampleBars(t),
		meta: models.MChartMeta{LongName: "Apple Inc."},
		news: []models.MNewsItem{{Title: "a"}},
	}
	d := newFetcher(p).FetchHistory(context.Background(), "aapl", "1w")
	require.NotNil(t, d)

	assert.Equal(t, []chartCall{{"AAPL", "5d", "1h"}}, p.calls)
	assert.Zero(t, p.infoN)
	assert.Zero(t, p.newsN)

	assert.Equal(t, "Apple Inc.", d.Name)
	assert.Equal(t, "1w", d.Timeframe)
	assert.Equal(t, 102.0, d.Price)
	assert.Len(t, d.History, 3)
	assert.Empty(t, d.Details)
	assert.Empty(t, d.News)

	assert.Nil(t, newFetcher(&fakeProvider{}).FetchHistory(context.Background(), "ZZZZ", "1d"))
}
