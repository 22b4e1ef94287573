package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// NotAvailable is shown for metadata the provider did not report.
const NotAvailable = "N/A"

var largeNumberSuffixes = []string{"", "K", "M", "B", "T"}

var suffixMultipliers = map[string]float64{
	"K": 1e3,
	"M": 1e6,
	"B": 1e9,
	"T": 1e12,
}

// -----------------------------------------------------------------------------

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// -----------------------------------------------------------------------------

// FormatLargeNumber renders x with two decimals and a K/M/B/T suffix,
// e.g. 1234567 -> "1.23M". Values past trillions stay in T.
func FormatLargeNumber(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return NotAvailable
	}

	magnitude := math.Abs(x)
	idx := 0
	for magnitude >= 1000 && idx < len(largeNumberSuffixes)-1 {
		magnitude /= 1000
		idx++
	}

	digits := decimal.NewFromFloat(magnitude).StringFixed(2)
	if x < 0 {
		digits = "-" + digits
	}
	return digits + largeNumberSuffixes[idx]
}

// -----------------------------------------------------------------------------

// ParseLargeNumber inverts FormatLargeNumber. It tolerates a leading "$" and
// thousands separators and yields 0 for "N/A", empty or malformed input.
func ParseLargeNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.EqualFold(s, NotAvailable) {
		return 0
	}

	multiplier := 1.0
	if m, ok := suffixMultipliers[strings.ToUpper(s[len(s)-1:])]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v * multiplier
}

// -----------------------------------------------------------------------------

// FormatRatio renders a ratio such as P/E, EPS or beta.
func FormatRatio(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", Round2(*v))
}

// FormatPercent renders a fraction (0.0052) as a percentage ("0.52%").
func FormatPercent(v *float64) string {
	if v == nil || *v == 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f%%", Round2(*v*100))
}

// FormatMoney renders a price with two decimals.
func FormatMoney(v *float64) string {
	if v == nil || *v == 0 {
		return NotAvailable
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

// FormatDollars renders a whole-dollar amount with separators, e.g. "$3,430,000,000".
func FormatDollars(v *float64) string {
	if v == nil || *v == 0 {
		return NotAvailable
	}
	return "$" + humanize.Comma(int64(math.Round(*v)))
}

// FormatCount renders an integer count with separators, e.g. "52,310,000".
func FormatCount(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
