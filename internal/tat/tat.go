// Package tat computes the turnaround time between a record being added and its invitation being sent.
package tat

import (
	"math"
	"time"
)

const millisPerHour = float64(time.Hour / time.Millisecond)

// Calculate returns the hours elapsed from addedOn to sentOn, rounded half away from zero
// to two decimals. Negative durations (clock skew, out-of-order timestamps) clamp to 0.
func Calculate(addedOn, sentOn time.Time) float64 {
	hours := float64(sentOn.Sub(addedOn).Milliseconds()) / millisPerHour
	rounded := math.Round(hours*100) / 100
	if rounded <= 0 {
		return 0
	}
	return rounded
}
