package utils

import "math"

// SafeDiv is the single division used by every derived metric: 0 when the
// denominator is zero or NaN, never an error, never NaN/Inf downstream.
func SafeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// Round1 rounds to one decimal place; used for percent display values.
func Round1(f float64) float64 { return math.Round(f*10) / 10 }

// TruncInt truncates toward zero; used for monetary and count display values.
func TruncInt(f float64) int64 { return int64(f) }
