package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"stock-watch/src/cache"
	"stock-watch/src/dashboard"
	datasource "stock-watch/src/data_source"
	"stock-watch/src/logger"
	"stock-watch/src/models"
	"stock-watch/src/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubFetcher struct {
	details map[string]*models.MStockDetail
	mu      sync.Mutex
	calls   []string
}

func (f *stubFetcher) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *stubFetcher) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *stubFetcher) FetchStock(context.Context, string) *models.MSnapshot { return nil }

func (f *stubFetcher) FetchDetail(_ context.Context, symbol, _ string) *models.MStockDetail {
	f.record("detail:" + symbol)
	return f.details[symbol]
}

func (f *stubFetcher) FetchHistory(_ context.Context, symbol, _ string) *models.MStockDetail {
	f.record("history:" + symbol)
	return f.details[symbol]
}

type stubStatus struct{}

func (stubStatus) State() datasource.State { return datasource.StateRunning }
func (stubStatus) Metrics() models.MRefreshMetrics {
	return models.MRefreshMetrics{Requested: 3, Fetched: 2}
}

// -----------------------------------------------------------------------------

type testEnv struct {
	server *DashboardServer
	http   *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, mutate func(cfg *models.MConfig)) *testEnv {
	t.Helper()

	cfg := &models.MConfig{
		Name:      "stock-watch",
		LogLevel:  "ERROR",
		SecretKey: "test-secret-key",
		Auth:      models.MAuthConfig{SessionLifetimeSeconds: 3600},
		DataSource: models.MDataSourceConfig{
			DefaultSymbols: []string{"AAPL", "MSFT", "GOOGL"},
		},
		Watchlist: models.MWatchlistConfig{MaxItems: 2},
		Search:    models.MSearchConfig{MaxResults: 5},
	}
	if mutate != nil {
		mutate(cfg)
	}

	log := logger.NewNopLogger("server")
	fetcher := &stubFetcher{details: map[string]*models.MStockDetail{
		"AAPL": {
			Symbol:    "AAPL",
			Name:      "Apple Inc.",
			Timeframe: "1d",
			Price:     102,
			History: []models.MHistoryPoint{
				{Date: "2024-03-13 09:45:00", Price: 100},
				{Date: "2024-03-13 09:46:00", Price: 101},
				{Date: "2024-03-13 09:47:00", Price: 102},
			},
		},
	}}

	dash := dashboard.NewDashboard(cfg, cache.NewStockCache(), fetcher, storage.NewMemoryDB(cfg, log), log)
	dash.BcryptCost = bcrypt.MinCost
	dash.Cache.Put("AAPL", &models.MSnapshot{Symbol: "AAPL", Name: "Apple", Price: 150, Volume: "1.00M"})
	dash.Cache.Put("MSFT", &models.MSnapshot{Symbol: "MSFT", Name: "Microsoft", Price: 300, Volume: "2.00M"})

	srv := NewDashboardServer(cfg, dash, log)
	srv.Refresher = stubStatus{}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Stop()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{server: srv, http: ts, client: client}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.http.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) post(t *testing.T, path string, form url.Values, referer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.http.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type indexBody struct {
	Stocks    []models.MSnapshot `json:"stocks"`
	Watchlist []models.MSnapshot `json:"watchlist"`
	Watched   []string           `json:"watched_symbols"`
	SortBy    string             `json:"sort_by"`
	Flashes   []Flash            `json:"flashes"`
}

// -----------------------------------------------------------------------------

func TestLatest(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/stock/NOPE/latest")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Stock not found"}`, string(body))

	resp = env.get(t, "/api/stock/aapl/latest")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[models.MSnapshot](t, resp)
	assert.Equal(t, "AAPL", snap.Symbol)
}

func TestIndex_SortAndWatchlistFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.post(t, "/add_to_watchlist", url.Values{"symbol": {"msft"}, "return_to": {"/?sort_by=price"}}, "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?sort_by=price", resp.Header.Get("Location"))

	idx := decode[indexBody](t, env.get(t, "/?sort_by=price"))
	require.Len(t, idx.Stocks, 2)
	assert.Equal(t, "MSFT", idx.Stocks[0].Symbol)
	assert.Equal(t, "price", idx.SortBy)
	assert.Equal(t, []string{"MSFT"}, idx.Watched)
	require.Len(t, idx.Watchlist, 1)
	require.Len(t, idx.Flashes, 1)
	assert.Equal(t, Flash{Category: FlashSuccess, Message: "MSFT added to watchlist"}, idx.Flashes[0])

	// flashes are one-shot
	idx = decode[indexBody](t, env.get(t, "/"))
	assert.Empty(t, idx.Flashes)
	assert.Equal(t, "AAPL", idx.Stocks[0].Symbol)

	env.post(t, "/add_to_watchlist", url.Values{"symbol": {"MSFT"}}, "")
	env.post(t, "/add_to_watchlist", url.Values{"symbol": {"AAPL"}}, "")
	env.post(t, "/add_to_watchlist", url.Values{"symbol": {"GOOGL"}}, "")
	idx = decode[indexBody](t, env.get(t, "/"))
	assert.Equal(t, []string{"MSFT", "AAPL"}, idx.Watched)
	require.Len(t, idx.Flashes, 3)
	assert.Equal(t, FlashWarning, idx.Flashes[0].Category)
	assert.Equal(t, "AAPL added to watchlist", idx.Flashes[1].Message)
	assert.Equal(t, "Watchlist is limited to 2 items", idx.Flashes[2].Message)

	resp = env.post(t, "/remove_from_watchlist", url.Values{"symbol": {"MSFT"}}, "/screener")
	assert.Equal(t, "/screener", resp.Header.Get("Location"))
	env.post(t, "/remove_from_watchlist", url.Values{"symbol": {"NFLX"}}, "")
	idx = decode[indexBody](t, env.get(t, "/"))
	assert.Equal(t, []string{"AAPL"}, idx.Watched)
	require.Len(t, idx.Flashes, 1)
	assert.Equal(t, "MSFT removed from watchlist", idx.Flashes[0].Message)
}

func TestRedirectBack_IgnoresForeignReturnTo(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.post(t, "/add_to_watchlist", url.Values{"symbol": {"AAPL"}, "return_to": {"https://evil.example/"}}, "")
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = env.post(t, "/add_to_watchlist", url.Values{"symbol": {"AAPL"}, "return_to": {"//evil.example"}}, "/stock/AAPL")
	assert.Equal(t, "/stock/AAPL", resp.Header.Get("Location"))
}

func TestIsLocalPath(t *testing.T) {
	assert.True(t, isLocalPath("/"))
	assert.True(t, isLocalPath("/stock/AAPL?timeframe=1w"))
	assert.False(t, isLocalPath(""))
	assert.False(t, isLocalPath("stock"))
	assert.False(t, isLocalPath("//evil.example"))
	assert.False(t, isLocalPath("/\\evil.example"))
	assert.False(t, isLocalPath("https://evil.example/x"))
}

func TestStockDetail(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/stock/NOPE")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	idx := decode[indexBody](t, env.get(t, "/"))
	require.Len(t, idx.Flashes, 1)
	assert.Equal(t, Flash{Category: FlashWarning, Message: "No data available for NOPE"}, idx.Flashes[0])

	resp = env.get(t, "/stock/AAPL?timeframe=bogus")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, "/stock/AAPL/chart.png?timeframe=1d", body["chart_url"])
	assert.Equal(t, false, body["watched"])
	assert.Len(t, body["timeframes"], 5)
}

func TestStockChart(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/stock/AAPL/chart.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	png, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(png), "\x89PNG"))

	resp = env.get(t, "/stock/NOPE/chart.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// the image only needs the history, never metadata or news
	calls := env.server.Dashboard.Fetcher.(*stubFetcher).recorded()
	assert.Equal(t, []string{"history:AAPL", "history:NOPE"}, calls)
}

func TestSearchAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	results := decode[[]models.MSnapshot](t, env.get(t, "/search?q=ms"))
	require.Len(t, results, 1)
	assert.Equal(t, "MSFT", results[0].Symbol)

	empty := decode[[]models.MSnapshot](t, env.get(t, "/search"))
	assert.Empty(t, empty)

	health := decode[map[string]any](t, env.get(t, "/api/health"))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(0), health["connections"])
	assert.Equal(t, float64(2), health["cached_symbols"])
	refresher := health["refresher"].(map[string]any)
	assert.Equal(t, "RUNNING", refresher["state"])
}

func TestRecovery(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.engine.GET("/boom-page", env.server.pageRecovery(), func(*gin.Context) { panic("boom") })
	env.server.engine.GET("/api/boom", env.server.jsonRecovery(), func(*gin.Context) { panic("boom") })

	resp := env.get(t, "/api/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(body))

	resp = env.get(t, "/boom-page")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	idx := decode[indexBody](t, env.get(t, "/"))
	require.Len(t, idx.Flashes, 1)
	assert.Equal(t, Flash{Category: FlashError, Message: "An unexpected error occurred"}, idx.Flashes[0])
}

func TestRecovery_IndexPanicDoesNotRedirectToItself(t *testing.T) {
	env := newTestEnv(t, nil)

	r := gin.New()
	r.Use(sessions.Sessions(sessionCookie, cookie.NewStore([]byte("test-secret-key"))))
	r.GET("/", env.server.pageRecovery(), func(*gin.Context) { panic("index broke") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Location"))

	var body struct {
		Flashes []Flash `json:"flashes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []Flash{{Category: FlashError, Message: "An unexpected error occurred"}}, body.Flashes)
}

func TestAuthGateAndAccounts(t *testing.T) {
	env := newTestEnv(t, func(cfg *models.MConfig) { cfg.Auth.Enabled = true })

	resp := env.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = env.get(t, "/api/stock/AAPL/latest")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	page := decode[map[string]any](t, env.get(t, "/login"))
	assert.Equal(t, "", page["username"])
	assert.Len(t, page["flashes"], 1)

	resp = env.post(t, "/register", url.Values{"username": {"alice"}}, "")
	assert.Equal(t, "/register", resp.Header.Get("Location"))

	resp = env.post(t, "/register", url.Values{"username": {"alice"}, "password": {"pw"}}, "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = env.get(t, "/api/stock/AAPL/latest")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	idx := decode[indexBody](t, env.get(t, "/"))
	require.NotEmpty(t, idx.Flashes)
	assert.Equal(t, "Registration successful!", idx.Flashes[len(idx.Flashes)-1].Message)

	resp = env.get(t, "/logout")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, http.StatusFound, env.get(t, "/").StatusCode)

	resp = env.post(t, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, "")
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = env.post(t, "/login", url.Values{"username": {"alice"}, "password": {"pw"}}, "")
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, http.StatusOK, env.get(t, "/").StatusCode)
}

func TestAccountRoutesOnlyWithAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/login").StatusCode)
}

// -----------------------------------------------------------------------------

func TestWebSocket_InitialUpdateAndSubscribe(t *testing.T) {
	env := newTestEnv(t, nil)

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() models.MLatestData {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg models.MLatestData
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	initial := read()
	assert.Equal(t, MessageInitial, initial.Type)
	assert.Len(t, initial.Snapshots, 2)

	assert.Eventually(t, func() bool { return env.server.connections.Load() == 1 }, time.Second, 10*time.Millisecond)

	env.server.Broadcast(&models.MLatestData{
		Type:      MessageUpdate,
		Snapshots: map[string]*models.MSnapshot{"AAPL": {Symbol: "AAPL", Price: 151}},
		Timestamp: 42,
	})
	update := read()
	assert.Equal(t, MessageUpdate, update.Type)
	assert.Equal(t, int64(42), update.Timestamp)
	assert.Equal(t, 151.0, update.Snapshots["AAPL"].Price)

	require.NoError(t, conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Symbols: []string{"msft"}}))
	sub := read()
	assert.Equal(t, MessageInitial, sub.Type)
	assert.Equal(t, int64(42), sub.Timestamp)
	require.Len(t, sub.Snapshots, 1)
	assert.Contains(t, sub.Snapshots, "MSFT")

	// AAPL-only update is filtered out; the MSFT one arrives next
	env.server.Broadcast(&models.MLatestData{
		Type:      MessageUpdate,
		Snapshots: map[string]*models.MSnapshot{"AAPL": {Symbol: "AAPL", Price: 152}},
		Timestamp: 43,
	})
	env.server.Broadcast(&models.MLatestData{
		Type:      MessageUpdate,
		Snapshots: map[string]*models.MSnapshot{"MSFT": {Symbol: "MSFT", Price: 301}},
		Timestamp: 44,
	})
	update = read()
	assert.Equal(t, int64(44), update.Timestamp)
	assert.Contains(t, update.Snapshots, "MSFT")
}
