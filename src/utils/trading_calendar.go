package utils

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // exchange zones must resolve on hosts without zoneinfo

	"stock-watch/src/models"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers market-hours questions for one exchange.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// Yahoo ticker suffix -> ISO 10383 MIC. Symbols without a suffix trade in the US.
var suffixToMIC = map[string]string{
	"L":  "xlon",
	"PA": "xpar",
	"DE": "xfra",
	"AS": "xams",
	"BR": "xbru",
	"MI": "xmil",
	"MC": "xmad",
	"ST": "xsto",
	"CO": "xcse",
	"HE": "xhel",
	"VI": "xwbo",
	"SW": "xswx",
	"TO": "xtse",
	"V":  "xtsx",
	"T":  "xtks",
	"HK": "xhkg",
	"AX": "xasx",
	"KS": "xkrx",
	"TW": "xtai",
	"SS": "xshg",
	"SZ": "xshe",
}

var (
	calendarsMu sync.Mutex
	calendars   = make(map[string]*TradingCalendar)
)

// -----------------------------------------------------------------------------

// MICForSymbol maps a ticker to the exchange it is listed on.
func MICForSymbol(symbol string) string {
	if i := strings.LastIndexByte(symbol, '.'); i >= 0 && i < len(symbol)-1 {
		if mic, ok := suffixToMIC[strings.ToUpper(symbol[i+1:])]; ok {
			return mic
		}
	}
	return "xnys"
}

// -----------------------------------------------------------------------------

// GetCalendar returns the (shared) calendar for the symbol's exchange.
func GetCalendar(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)

	calendarsMu.Lock()
	defer calendarsMu.Unlock()

	if tc, ok := calendars[mic]; ok {
		return tc
	}

	tc := loadCalendar(mic)
	calendars[mic] = tc
	return tc
}

func loadCalendar(mic string) *TradingCalendar {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		// Mon-Fri 09:30-16:00 New York time
		nyLoc, err := time.LoadLocation("America/New_York")
		if err != nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		minutes := t.Hour()*60 + t.Minute()
		return minutes >= 9*60+30 && minutes < 16*60
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// IsIntraday reports whether a Yahoo interval is finer than one day.
func IsIntraday(interval string) bool {
	return strings.HasSuffix(interval, "m") && !strings.HasSuffix(interval, "mo") ||
		strings.HasSuffix(interval, "h")
}

// -----------------------------------------------------------------------------

// FilterBars keeps intraday bars inside official market hours and daily bars
// on trading days. Coarser bars are stamped at period start and pass through.
// A filter that would leave nothing returns the input unchanged.
func (tc *TradingCalendar) FilterBars(bars []models.MBar, interval string) []models.MBar {
	var keep func(time.Time) bool
	switch {
	case IsIntraday(interval):
		keep = tc.IsOpenOnMinute
	case interval == "1d":
		keep = tc.IsTradingDay
	default:
		return bars
	}

	out := make([]models.MBar, 0, len(bars))
	for _, b := range bars {
		if keep(time.Unix(b.Timestamp, 0)) {
			out = append(out, b)
		}
	}

	if len(out) == 0 {
		return bars
	}
	return out
}
