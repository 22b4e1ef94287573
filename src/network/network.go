package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"stock-watch/src/helpers"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps provider responses; chart payloads for 1y/1wk are far smaller.
const maxBodyBytes = 8 << 20

// AsyncNetworkManager is shared by the refresh loop and the request
// handlers. At most network.concurrent_requests requests are in flight and
// the token bucket allows that many to start at once.
type AsyncNetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger
	limiter      *rate.Limiter
	slots        chan struct{}
	jar          http.CookieJar
	client       *http.Client
	mu           sync.RWMutex
	backoff      func(attempt int) time.Duration
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	concurrent := max(1, cfg.Network.ConcurrentRequests)

	limit := rate.Inf
	burst := concurrent
	if cfg.Network.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.Network.RequestsPerSecond)
		burst = max(concurrent, int(cfg.Network.RequestsPerSecond))
	}

	// Yahoo hands out its session cookie on one host and checks it on another
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent),
		Logger:       log,
		limiter:      rate.NewLimiter(limit, burst),
		slots:        make(chan struct{}, concurrent),
		jar:          jar,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Jar:       nm.jar,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()

	nm.mu.Lock()
	nm.client = client
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) httpClient() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

// Get performs a rate-limited GET request with retries and proxy rotation.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(nm.backoff(i)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			nm.rotateProxy()
		}

		if err := nm.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retry, err := nm.doInSlot(ctx, finalURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		nm.Logger.Debug("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
		if !retry {
			break
		}
	}

	return nil, helpers.NewNetworkError(fmt.Sprintf("GET %s", reqURL.Path), lastErr)
}

// -----------------------------------------------------------------------------

// doInSlot waits for one of the concurrent_requests slots, then runs do.
func (nm *AsyncNetworkManager) doInSlot(ctx context.Context, finalURL string) ([]byte, bool, error) {
	select {
	case nm.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	defer func() { <-nm.slots }()

	return nm.do(ctx, finalURL)
}

// -----------------------------------------------------------------------------

// do performs one attempt; retry reports whether another attempt may help.
func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := nm.httpClient().Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		return nil, true, fmt.Errorf("blocked (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		// Unknown symbols answer 404; retrying will not change that.
		return nil, false, fmt.Errorf("not found (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, resp.StatusCode >= 500, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
