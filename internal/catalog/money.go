package catalog

import (
	"fmt"
	"math"
)

// CentsFromPrice converts a decimal price to whole cents, rounding half away
// from zero.
func CentsFromPrice(price float64) int64 {
	return int64(math.Round(price * 100))
}

// FormatCents renders cents with two decimals, e.g. 1275 -> "12.75".
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
