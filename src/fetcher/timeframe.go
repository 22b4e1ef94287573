package fetcher

// Timeframe maps a detail-page key to a Yahoo range/interval pair.
type Timeframe struct {
	Key      string
	Range    string
	Interval string
}

const DefaultTimeframe = "1d"

var timeframes = map[string]Timeframe{
	"1d": {Key: "1d", Range: "1d", Interval: "5m"},
	"1w": {Key: "1w", Range: "5d", Interval: "1h"},
	"1m": {Key: "1m", Range: "1mo", Interval: "1d"},
	"3m": {Key: "3m", Range: "3mo", Interval: "1d"},
	"1y": {Key: "1y", Range: "1y", Interval: "1wk"},
}

// Snapshot parameters used by the list view and the refresh loop.
const (
	snapshotRange    = "1d"
	snapshotInterval = "1m"
)

// ResolveTimeframe returns the timeframe for key, falling back to 1d.
func ResolveTimeframe(key string) Timeframe {
	if tf, ok := timeframes[key]; ok {
		return tf
	}
	return timeframes[DefaultTimeframe]
}

// Timeframes lists the accepted keys in display order.
func Timeframes() []string {
	return []string{"1d", "1w", "1m", "3m", "1y"}
}
