package retrieval

import (
	"math"
	"time"
)

const hoursPerDay = 24.0

// Decay returns the recency multiplier in (0,1] for an item at ts relative
// to a reference time: exp(-|ref-ts| in days * weight). A weight of 0
// disables decay and returns 1.0.
//
// The multiplier is symmetric around the reference time: items in the future
// decay exactly like items in the past. The reference time is
// caller-supplied and need not be "now".
func Decay(ts, ref time.Time, weight float64) float64 {
	if weight == 0 {
		return 1.0
	}
	days := math.Abs(ref.Sub(ts).Hours()) / hoursPerDay
	return math.Exp(-days * weight)
}
