package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"stock-watch/src/dashboard"
	datasource "stock-watch/src/data_source"
	"stock-watch/src/logger"
	"stock-watch/src/models"
	"stock-watch/src/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionCookie = "stockwatch_session"

// RefreshStatus is the read side of the refresh loop shown on /api/health.
type RefreshStatus interface {
	State() datasource.State
	Metrics() models.MRefreshMetrics
}

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Dashboard *dashboard.Dashboard
	Refresher RefreshStatus
	Markets   *utils.MarketScheduler

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	broadcast   chan *models.MLatestData
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	quit        chan struct{}
	stopOnce    sync.Once
	connections atomic.Int32

	// Last pass, replayed to new clients
	latestTimestamp int64
	latestMetrics   models.MRefreshMetrics
	stateMutex      sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, dash *dashboard.Dashboard, log *logger.Logger) *DashboardServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:    cfg,
		Logger:    log,
		Dashboard: dash,
		engine:    gin.New(),
		clients:   make(map[*Client]struct{}),
		// Buffered so a refresh pass never waits on the hub
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		quit:       make(chan struct{}),
	}

	if gin.Mode() == gin.DebugMode {
		s.engine.Use(gin.Logger())
	}
	s.engine.Use(s.cors())

	store := cookie.NewStore([]byte(cfg.SecretKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Auth.SessionLifetimeSeconds,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.engine.Use(sessions.Sessions(sessionCookie, store))

	s.setupRoutes()

	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------

// cors lets a local frontend on 127.0.0.1 call the API with credentials.
func (s *DashboardServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	pages := s.engine.Group("/", s.pageRecovery(), s.requireLoginPage())
	pages.GET("/", s.getIndex)
	pages.GET("/stock/:symbol", s.getStockDetail)
	pages.GET("/screener", s.getScreener)
	pages.POST("/add_to_watchlist", s.postAddToWatchlist)
	pages.POST("/remove_from_watchlist", s.postRemoveFromWatchlist)

	api := s.engine.Group("/", s.jsonRecovery(), s.requireLoginAPI())
	api.GET("/stock/:symbol/chart.png", s.getStockChart)
	api.GET("/api/stock/:symbol/latest", s.getLatest)
	api.GET("/search", s.getSearch)
	api.GET("/ws", s.handleWebSocket)

	s.engine.GET("/api/health", s.jsonRecovery(), s.getHealth)

	if s.Config.Auth.Enabled {
		accounts := s.engine.Group("/", s.pageRecovery())
		accounts.GET("/register", s.getAccountPage)
		accounts.POST("/register", s.postRegister)
		accounts.GET("/login", s.getAccountPage)
		accounts.POST("/login", s.postLogin)
		accounts.GET("/logout", s.getLogout)
	}
}

// Handler exposes the router, mainly for tests.
func (s *DashboardServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP until Stop is called.
func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// -----------------------------------------------------------------------------

// Stop shuts the HTTP server down and stops the hub.
func (s *DashboardServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestTimestamp
	s.stateMutex.RUnlock()

	body := gin.H{
		"status":         "ok",
		"connections":    s.connections.Load(),
		"latest_update":  timestamp,
		"cached_symbols": s.Dashboard.Cache.Len(),
	}
	if s.Refresher != nil {
		body["refresher"] = gin.H{
			"state":   s.Refresher.State(),
			"metrics": s.Refresher.Metrics(),
		}
	}
	if s.Markets != nil {
		body["market_open"] = s.Markets.AnyMarketOpen()
		body["open_markets"] = s.Markets.OpenMarkets()
	}

	c.JSON(http.StatusOK, body)
}
