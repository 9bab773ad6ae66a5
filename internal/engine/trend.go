package engine

import (
	"math"

	"vitalwatch/internal/models"
)

// PercentChange computes the relative change of the current value against
// the oldest reading in the window. The second return distinguishes "no
// signal" from a genuine 0% change: fewer than two readings in the window,
// or a zero baseline, produce no signal rather than a number.
func PercentChange(window []models.Reading, current float64) (float64, bool) {
	if len(window) < 2 {
		return 0, false
	}

	oldest := window[0].Value
	if oldest == 0 {
		return 0, false
	}

	return math.Abs(current-oldest) / oldest * 100, true
}
