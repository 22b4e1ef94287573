package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"stock-watch/src/helpers"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"
)

const (
	DefaultChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart/"
	DefaultSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary/"
	DefaultSearchURL  = "https://query1.finance.yahoo.com/v1/finance/search"
	DefaultCookieURL  = "https://fc.yahoo.com"
	DefaultCrumbURL   = "https://query1.finance.yahoo.com/v1/test/getcrumb"

	// a failed handshake is not retried before this delay
	crumbRetryDelay = time.Minute

	summaryModules = "price,summaryDetail,defaultKeyStatistics,assetProfile"
	summaryMaxLen  = 200
)

// YahooFinanceSource talks to the public Yahoo Finance JSON endpoints.
type YahooFinanceSource struct {
	Network    interfaces.INetworkManager
	Logger     *logger.Logger
	ChartURL   string
	SummaryURL string
	SearchURL  string
	CookieURL  string
	CrumbURL   string

	crumbMu      sync.Mutex
	crumb        string
	crumbRetryAt time.Time
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	return &YahooFinanceSource{
		Network:    netMgr,
		Logger:     log,
		ChartURL:   DefaultChartURL,
		SummaryURL: DefaultSummaryURL,
		SearchURL:  DefaultSearchURL,
		CookieURL:  DefaultCookieURL,
		CrumbURL:   DefaultCrumbURL,
	}
}

// -----------------------------------------------------------------------------

// Chart fetches OHLCV bars for a range/interval pair
func (s *YahooFinanceSource) Chart(ctx context.Context, symbol, rangeStr, interval string) ([]models.MBar, models.MChartMeta, error) {
	params := map[string]string{
		"interval":       interval,
		"range":          rangeStr,
		"includePrePost": "false",
	}

	respBytes, err := s.Network.Get(ctx, s.ChartURL+url.PathEscape(symbol), params)
	if err != nil {
		return nil, models.MChartMeta{}, helpers.NewDataSourceError("chart "+symbol, err)
	}

	return s.parseChartResponse(symbol, respBytes)
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				FullExchangeName   string  `json:"fullExchangeName"`
				InstrumentType     string  `json:"instrumentType"`
				LongName           string  `json:"longName"`
				ShortName          string  `json:"shortName"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				Gmtoffset          int     `json:"gmtoffset"`
				Timezone           string  `json:"timezone"`
				ExchangeTimezone   string  `json:"exchangeTimezoneName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				DataGranularity    string  `json:"dataGranularity"`
				Range              string  `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"` // pointers: Yahoo sends null for gaps
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(symbol string, data []byte) ([]models.MBar, models.MChartMeta, error) {
	var resp YahooChartResponse
	var meta models.MChartMeta

	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, meta, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, meta, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, meta, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	meta = models.MChartMeta{
		Symbol:       result.Meta.Symbol,
		LongName:     result.Meta.LongName,
		ShortName:    result.Meta.ShortName,
		ExchangeName: result.Meta.ExchangeName,
		Timezone:     result.Meta.ExchangeTimezone,
	}

	// A symbol with no trades in range answers with an empty series, not an error.
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, meta, nil
	}

	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	if len(quote.Close) != n || len(quote.Open) != n || len(quote.High) != n ||
		len(quote.Low) != n || len(quote.Volume) != n {
		s.Logger.Warning("Data alignment error for %s: mismatched array lengths", symbol)
		return nil, meta, fmt.Errorf("data alignment error for %s", symbol)
	}

	bars := make([]models.MBar, 0, n)
	for i := 0; i < n; i++ {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}

		// Volume is null on some index/ETF bars; treat it as no volume.
		volume := 0.0
		if quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		if *quote.Close[i] <= 0 || volume < 0 {
			s.Logger.Debug("Skipping invalid point for %s: close=%f, volume=%f", symbol, *quote.Close[i], volume)
			continue
		}

		bars = append(bars, models.MBar{
			Timestamp: result.Timestamp[i],
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    volume,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp < bars[j].Timestamp
	})

	if len(bars) > 0 {
		s.Logger.Debug("Fetched %s: %d valid points [%d -> %d]", symbol, len(bars), bars[0].Timestamp, bars[len(bars)-1].Timestamp)
	}

	return bars, meta, nil
}

// -----------------------------------------------------------------------------

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName  string   `json:"longName"`
				ShortName string   `json:"shortName"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				MarketCap        rawValue `json:"marketCap"`
				ForwardPE        rawValue `json:"forwardPE"`
				Beta             rawValue `json:"beta"`
				DividendYield    rawValue `json:"dividendYield"`
				FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				ForwardPE   rawValue `json:"forwardPE"`
				TrailingEps rawValue `json:"trailingEps"`
				Beta        rawValue `json:"beta"`
			} `json:"defaultKeyStatistics"`
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// -----------------------------------------------------------------------------

// sessionCrumb returns the crumb quoteSummary expects next to the session
// cookie, running the handshake when none is cached. Empty means unavailable.
func (s *YahooFinanceSource) sessionCrumb(ctx context.Context) string {
	s.crumbMu.Lock()
	defer s.crumbMu.Unlock()

	if s.crumb != "" || time.Now().Before(s.crumbRetryAt) {
		return s.crumb
	}

	// answers 404 but sets the session cookie on the shared jar
	_, _ = s.Network.Get(ctx, s.CookieURL, nil)

	body, err := s.Network.Get(ctx, s.CrumbURL, nil)
	crumb := strings.TrimSpace(string(body))
	if err != nil || crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		s.Logger.Debug("Crumb handshake failed: %v", err)
		s.crumbRetryAt = time.Now().Add(crumbRetryDelay)
		return ""
	}

	s.crumb = crumb
	return crumb
}

// dropCrumb forgets a crumb the endpoint rejected.
func (s *YahooFinanceSource) dropCrumb(rejected string) {
	s.crumbMu.Lock()
	defer s.crumbMu.Unlock()
	if rejected != "" && s.crumb == rejected {
		s.crumb = ""
	}
}

// -----------------------------------------------------------------------------

// QuoteInfo fetches the metadata bag from the quoteSummary endpoint
func (s *YahooFinanceSource) QuoteInfo(ctx context.Context, symbol string) (*models.MQuoteInfo, error) {
	params := map[string]string{"modules": summaryModules}
	crumb := s.sessionCrumb(ctx)
	if crumb != "" {
		params["crumb"] = crumb
	}

	respBytes, err := s.Network.Get(ctx, s.SummaryURL+url.PathEscape(symbol), params)
	if err != nil {
		s.dropCrumb(crumb)
		return nil, helpers.NewDataSourceError("quote summary "+symbol, err)
	}

	var resp quoteSummaryResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	if resp.QuoteSummary.Error != nil {
		s.dropCrumb(crumb)
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.QuoteSummary.Error.Code, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no quote summary for %s", symbol)
	}

	r := resp.QuoteSummary.Result[0]
	info := &models.MQuoteInfo{
		LongName:         r.Price.LongName,
		Sector:           r.AssetProfile.Sector,
		Industry:         r.AssetProfile.Industry,
		MarketCap:        firstRaw(r.Price.MarketCap, r.SummaryDetail.MarketCap),
		ForwardPE:        firstRaw(r.SummaryDetail.ForwardPE, r.DefaultKeyStatistics.ForwardPE),
		TrailingEps:      r.DefaultKeyStatistics.TrailingEps.Raw,
		Beta:             firstRaw(r.SummaryDetail.Beta, r.DefaultKeyStatistics.Beta),
		DividendYield:    r.SummaryDetail.DividendYield.Raw,
		FiftyTwoWeekHigh: r.SummaryDetail.FiftyTwoWeekHigh.Raw,
		FiftyTwoWeekLow:  r.SummaryDetail.FiftyTwoWeekLow.Raw,
	}
	if info.LongName == "" {
		info.LongName = r.Price.ShortName
	}
	return info, nil
}

func firstRaw(values ...rawValue) *float64 {
	for _, v := range values {
		if v.Raw != nil {
			return v.Raw
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		Summary             string `json:"summary"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
		Thumbnail           *struct {
			Resolutions []struct {
				URL    string `json:"url"`
				Width  int    `json:"width"`
				Height int    `json:"height"`
				Tag    string `json:"tag"`
			} `json:"resolutions"`
		} `json:"thumbnail"`
	} `json:"news"`
}

// -----------------------------------------------------------------------------

// News fetches recent headlines through the search endpoint
func (s *YahooFinanceSource) News(ctx context.Context, symbol string, limit int) ([]models.MNewsItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := map[string]string{
		"q":           symbol,
		"quotesCount": "0",
		"newsCount":   strconv.Itoa(limit),
	}

	respBytes, err := s.Network.Get(ctx, s.SearchURL, params)
	if err != nil {
		return nil, helpers.NewDataSourceError("news "+symbol, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	items := make([]models.MNewsItem, 0, min(limit, len(resp.News)))
	for _, n := range resp.News {
		if len(items) == limit {
			break
		}
		item := models.MNewsItem{
			Title:     n.Title,
			Publisher: n.Publisher,
			Link:      n.Link,
			Summary:   truncate(n.Summary, summaryMaxLen),
		}
		if n.ProviderPublishTime > 0 {
			item.PublishTime = time.Unix(n.ProviderPublishTime, 0).UTC().Format("2006-01-02 15:04")
		}
		if n.Thumbnail != nil && len(n.Thumbnail.Resolutions) > 0 {
			item.Thumbnail = n.Thumbnail.Resolutions[0].URL
		}
		items = append(items, item)
	}
	return items, nil
}

// -----------------------------------------------------------------------------

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
