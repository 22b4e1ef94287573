package models

// MRefreshMetrics describes the most recent refresh pass.
type MRefreshMetrics struct {
	PassSeconds    float64 `json:"pass_seconds"`
	Requested      int     `json:"requested"`
	Fetched        int     `json:"fetched"`
	LastPassUnix   int64   `json:"last_pass_unix"`
	ConsecutiveErr int     `json:"consecutive_errors"`
}
