// Package reconcile normalizes loaded records into pharmacies, claims, and
// reverts, and derives the filtered claim sets the analytics consume.
package reconcile

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/claims-cli/internal/model"
)

// ParseNumber coerces a raw field to a finite decimal float. Null values,
// empty or non-numeric text, hex floats, NaN and infinities fail.
func ParseNumber(v model.Value) (float64, bool) {
	if v.Null {
		return 0, false
	}
	s := strings.TrimSpace(v.Raw)
	if s == "" || isHex(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Round2 rounds to two decimal places, half away from zero, on the shortest
// decimal representation of x (so 2.675 rounds to 2.68).
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r := decimal.NewFromFloat(x).Round(2).InexactFloat64()
	if r == 0 {
		return 0 // no negative zero in output
	}
	return r
}
