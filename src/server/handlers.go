package server

import (
	"errors"
	"fmt"
	"net/http"

	"stock-watch/src/dashboard"
	"stock-watch/src/fetcher"
	"stock-watch/src/models"
	"stock-watch/src/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type indexPage struct {
	*dashboard.IndexView
	Flashes []Flash `json:"flashes"`
}

type detailPage struct {
	*models.MStockDetail
	Timeframes []string `json:"timeframes"`
	Watched    bool     `json:"watched"`
	ChartURL   string   `json:"chart_url"`
	Flashes    []Flash  `json:"flashes"`
}

type screenerPage struct {
	*models.MScreenerView
	Flashes []Flash `json:"flashes"`
}

// -----------------------------------------------------------------------------
// Pages
// -----------------------------------------------------------------------------

func (s *DashboardServer) getIndex(c *gin.Context) {
	sess := sessions.Default(c)
	view := s.Dashboard.Index(sess, c.Query("sort_by"))
	flashes := popFlashes(sess)
	s.saveSession(sess)

	c.JSON(http.StatusOK, indexPage{IndexView: view, Flashes: flashes})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getStockDetail(c *gin.Context) {
	sess := sessions.Default(c)
	symbol := c.Param("symbol")
	tf := fetcher.ResolveTimeframe(c.Query("timeframe"))

	detail, err := s.Dashboard.Detail(c.Request.Context(), symbol, tf.Key)
	if err != nil {
		addFlash(sess, FlashWarning, fmt.Sprintf("No data available for %s", symbol))
		s.saveSession(sess)
		c.Redirect(http.StatusFound, "/")
		return
	}

	flashes := popFlashes(sess)
	s.saveSession(sess)

	c.JSON(http.StatusOK, detailPage{
		MStockDetail: detail,
		Timeframes:   fetcher.Timeframes(),
		Watched:      dashboard.WatchlistFromSession(sess).Contains(detail.Symbol),
		ChartURL:     fmt.Sprintf("/stock/%s/chart.png?timeframe=%s", detail.Symbol, tf.Key),
		Flashes:      flashes,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getScreener(c *gin.Context) {
	sess := sessions.Default(c)
	view := s.Dashboard.Screener(c.Request.Context(), dashboard.ScreenerQuery{
		View:     c.Query("view"),
		Sector:   c.Query("sector"),
		Industry: c.Query("industry"),
		SortBy:   c.Query("sort_by"),
	})
	flashes := popFlashes(sess)
	s.saveSession(sess)

	c.JSON(http.StatusOK, screenerPage{MScreenerView: view, Flashes: flashes})
}

// -----------------------------------------------------------------------------
// Watchlist mutations
// -----------------------------------------------------------------------------

func (s *DashboardServer) postAddToWatchlist(c *gin.Context) {
	sess := sessions.Default(c)

	symbol, err := s.Dashboard.AddToWatchlist(sess, c.PostForm("symbol"))
	switch {
	case err == nil:
		addFlash(sess, FlashSuccess, fmt.Sprintf("%s added to watchlist", symbol))
	case errors.Is(err, dashboard.ErrWatchlistFull):
		addFlash(sess, FlashError, fmt.Sprintf("Watchlist is limited to %d items", s.Config.Watchlist.MaxItems))
	case errors.Is(err, dashboard.ErrAlreadyWatched):
		addFlash(sess, FlashWarning, fmt.Sprintf("%s is already in your watchlist", symbol))
	default:
		addFlash(sess, FlashError, "Symbol is required")
	}

	s.saveSession(sess)
	redirectBack(c)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postRemoveFromWatchlist(c *gin.Context) {
	sess := sessions.Default(c)

	if symbol, removed := s.Dashboard.RemoveFromWatchlist(sess, c.PostForm("symbol")); removed {
		addFlash(sess, FlashSuccess, fmt.Sprintf("%s removed from watchlist", symbol))
	}

	s.saveSession(sess)
	redirectBack(c)
}

// -----------------------------------------------------------------------------
// JSON endpoints
// -----------------------------------------------------------------------------

func (s *DashboardServer) getLatest(c *gin.Context) {
	snap, ok := s.Dashboard.Latest(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getSearch(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Search(c.Request.Context(), c.Query("q")))
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getStockChart(c *gin.Context) {
	tf := fetcher.ResolveTimeframe(c.Query("timeframe"))

	detail, err := s.Dashboard.History(c.Request.Context(), c.Param("symbol"), tf.Key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
		return
	}

	png, err := RenderHistoryChart(detail, utils.IsIntraday(tf.Interval))
	if err != nil {
		s.Logger.Debug("Chart for %s unavailable: %v", detail.Symbol, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not enough data to chart"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
