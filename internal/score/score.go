// Package score converts the heterogeneous review representations Steam
// serves into a single 0-100 approval percentage.
package score

import "math"

// Normalize computes the approval percentage for a title. Preference order:
// a positive/total review ratio, then a critic score. Critic scores arrive on
// two scales with no unit flag; values at or below 10 are treated as a 0-10
// scale and multiplied out. Returns ok=false when no usable input exists.
func Normalize(positive, total *int, fallback *float64) (int, bool) {
	if total != nil && *total > 0 && positive != nil {
		return int(math.Round(float64(*positive) / float64(*total) * 100)), true
	}
	if fallback != nil {
		if *fallback <= 10 {
			return int(math.Round(*fallback * 10)), true
		}
		return int(math.Round(*fallback)), true
	}
	return 0, false
}
