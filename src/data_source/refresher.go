package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stock-watch/src/cache"
	"stock-watch/src/helpers"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"
)

type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StateBackoff State = "BACKOFF"
)

const cleanupEvery = time.Hour

// snapshotReader is implemented by mirrors that can be read back.
type snapshotReader interface {
	Latest(ctx context.Context, symbols []string) ([]*models.MSnapshot, error)
}

// Refresher is the single background task keeping the stock cache fresh.
// A pass fetches every default symbol in order; failed symbols keep their
// previous value. An error escaping a pass puts the loop in BACKOFF for
// twice the interval, after which it resumes.
type Refresher struct {
	Symbols      []string
	Interval     time.Duration
	Fetcher      interfaces.IStockFetcher
	Cache        *cache.StockCache
	DB           interfaces.IDatabase
	Mirror       interfaces.ISnapshotMirror
	Broadcaster  interfaces.IBroadcaster
	Health       interfaces.IHealthReporter
	Logger       *logger.Logger
	ErrorHandler *helpers.ErrorHandler

	sleep       func(ctx context.Context, d time.Duration) bool
	now         func() time.Time
	lastCleanup time.Time

	mu         sync.RWMutex
	state      State
	metrics    models.MRefreshMetrics
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// -----------------------------------------------------------------------------

func NewRefresher(cfg *models.MConfig, fetcher interfaces.IStockFetcher, stockCache *cache.StockCache, log *logger.Logger) *Refresher {
	symbols := make([]string, len(cfg.DataSource.DefaultSymbols))
	for i, s := range cfg.DataSource.DefaultSymbols {
		symbols[i] = strings.ToUpper(s)
	}

	return &Refresher{
		Symbols:      symbols,
		Interval:     time.Duration(cfg.DataSource.UpdateIntervalSeconds) * time.Second,
		Fetcher:      fetcher,
		Cache:        stockCache,
		Logger:       log,
		ErrorHandler: helpers.NewErrorHandler(log),
		sleep:        sleepCtx,
		now:          time.Now,
		state:        StateStopped,
	}
}

// sleepCtx waits for d; false means ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// -----------------------------------------------------------------------------

// Warm seeds the cache from the archive, or from the mirror when the archive
// is empty, so the dashboard has data before the first pass completes.
func (r *Refresher) Warm(ctx context.Context) int {
	var snaps []*models.MSnapshot

	if r.DB != nil {
		loaded, err := r.DB.LoadLatestSnapshots(ctx)
		if err != nil {
			r.Logger.Warning("Could not warm cache from archive: %v", err)
		}
		snaps = loaded
	}

	if len(snaps) == 0 && r.Mirror != nil {
		if reader, ok := r.Mirror.(snapshotReader); ok {
			loaded, err := reader.Latest(ctx, r.Symbols)
			if err != nil {
				r.Logger.Warning("Could not warm cache from mirror: %v", err)
			}
			snaps = loaded
		}
	}

	for _, s := range snaps {
		r.Cache.Put(s.Symbol, s)
	}
	if len(snaps) > 0 {
		r.Logger.Info("Warmed cache with %d snapshots", len(snaps))
	}
	return len(snaps)
}

// -----------------------------------------------------------------------------

// Start launches the loop in its own goroutine.
func (r *Refresher) Start(parentCtx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelFunc != nil {
		return fmt.Errorf("refresher is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	r.cancelFunc = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.Run(ctx)
	}()

	r.Logger.Info("Started refresher: %d symbols every %s", len(r.Symbols), r.Interval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels the loop and waits for the current pass to finish.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancelFunc, r.done
	r.cancelFunc = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	r.Logger.Info("Refresher stopped")
	return nil
}

// -----------------------------------------------------------------------------

// Run blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	defer r.setState(StateStopped)

	for {
		r.setState(StateRunning)
		err := r.RunPass(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := r.Interval
		if err != nil {
			r.ErrorHandler.Handle(err, "refresh pass")
			r.setState(StateBackoff)
			r.setHealth(false)
			delay = 2 * r.Interval
		} else {
			r.ErrorHandler.ResetErrorCount()
			r.setHealth(true)
			r.maybeCleanup(ctx)
		}

		r.mu.Lock()
		r.metrics.ConsecutiveErr = r.ErrorHandler.ErrorCount
		r.mu.Unlock()

		if !r.sleep(ctx, delay) {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// RunPass performs one refresh pass. Panics are recovered into errors.
func (r *Refresher) RunPass(ctx context.Context) error {
	return helpers.Recover(func() error { return r.pass(ctx) })
}

func (r *Refresher) pass(ctx context.Context) error {
	start := r.now()
	fetched := make([]*models.MSnapshot, 0, len(r.Symbols))

	for _, symbol := range r.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap := r.Fetcher.FetchStock(ctx, symbol)
		if snap == nil {
			continue
		}
		r.Cache.Put(symbol, snap)
		fetched = append(fetched, snap)
	}

	if r.DB != nil {
		if err := r.DB.SaveSnapshots(ctx, fetched); err != nil {
			return fmt.Errorf("archive pass: %w", err)
		}
	}
	if r.Mirror != nil {
		if err := r.Mirror.Publish(ctx, fetched); err != nil {
			return fmt.Errorf("mirror pass: %w", err)
		}
	}

	end := r.now()
	r.mu.Lock()
	r.metrics.PassSeconds = end.Sub(start).Seconds()
	r.metrics.Requested = len(r.Symbols)
	r.metrics.Fetched = len(fetched)
	r.metrics.LastPassUnix = end.Unix()
	metrics := r.metrics
	r.mu.Unlock()

	r.Logger.Debug("Refresh pass: %d/%d symbols in %.2fs", len(fetched), len(r.Symbols), metrics.PassSeconds)

	if r.Broadcaster != nil && len(fetched) > 0 {
		update := &models.MLatestData{
			Type:      "UPDATE",
			Snapshots: make(map[string]*models.MSnapshot, len(fetched)),
			Timestamp: end.Unix(),
			Metrics:   metrics,
		}
		for _, s := range fetched {
			update.Snapshots[s.Symbol] = s
		}
		r.Broadcaster.Broadcast(update)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (r *Refresher) maybeCleanup(ctx context.Context) {
	if r.DB == nil {
		return
	}
	now := r.now()
	if !r.lastCleanup.IsZero() && now.Sub(r.lastCleanup) < cleanupEvery {
		return
	}
	r.lastCleanup = now

	if err := r.DB.CleanupOldData(ctx); err != nil {
		r.Logger.Warning("Archive cleanup failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (r *Refresher) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Refresher) setHealth(serving bool) {
	if r.Health != nil {
		r.Health.SetServing(serving)
	}
}

// State reports the loop state.
func (r *Refresher) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Metrics describes the latest pass.
func (r *Refresher) Metrics() models.MRefreshMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics
}
