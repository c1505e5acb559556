package esmutils

import "math"

// Rounded to milliwatt so 0.234 kW is exactly 234 W
func KwToW(kw float64) float64 {
	return math.Round(kw*1e6) / 1e3
}

func WToKw(w float64) float64 {
	return w / 1000
}
