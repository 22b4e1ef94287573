package utils

import (
	"slices"
	"sync"
	"time"

	"stock-watch/src/logger"
)

// MarketScheduler tracks the exchanges behind the watched symbols.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	ms.MapSymbolsToCalendars(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars replaces the symbol -> calendar mapping.
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string) {
	calendars := make(map[string]*TradingCalendar, len(symbols))
	unique := make(map[string]struct{})
	for _, symbol := range symbols {
		cal := GetCalendar(symbol)
		calendars[symbol] = cal
		unique[cal.MIC] = struct{}{}
	}

	ms.mu.Lock()
	ms.Calendars = calendars
	ms.mu.Unlock()

	ms.Logger.Info("MarketScheduler: Mapped %d symbols to %d unique calendars.", len(symbols), len(unique))
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if any tracked market is currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := ms.now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, cal := range ms.Calendars {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// OpenMarkets lists the MICs that are open right now.
func (ms *MarketScheduler) OpenMarkets() []string {
	now := ms.now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	seen := make(map[string]bool)
	var open []string
	for _, cal := range ms.Calendars {
		if seen[cal.MIC] {
			continue
		}
		seen[cal.MIC] = true
		if cal.IsOpenOnMinute(now) {
			open = append(open, cal.MIC)
		}
	}
	slices.Sort(open)
	return open
}
