package engine

import (
	"vitalwatch/internal/models"
)

// Evaluate classifies a reading against its configured threshold. The
// critical check shadows the warning check: a value outside both bands is
// classified only as critical, so the same axis is never double-counted.
// The rate-of-change check is additive and can co-occur with either.
// The trend window must include the current reading as its newest entry.
func Evaluate(r *models.Reading, th models.Threshold, trendWindow []models.Reading) models.TriggerSet {
	var triggers models.TriggerSet

	switch {
	case breaches(r.Value, th.CriticalMin, th.CriticalMax):
		triggers = triggers.Add(models.TriggerCriticalThreshold)
	case breaches(r.Value, th.WarningMin, th.WarningMax):
		triggers = triggers.Add(models.TriggerWarningThreshold)
	}

	if th.HasTrendConfig() {
		if pct, ok := PercentChange(trendWindow, r.Value); ok && pct >= *th.TrendPercentThreshold {
			triggers = triggers.Add(models.TriggerRapidChange)
		}
	}

	return triggers
}

// breaches reports whether value falls outside the configured band.
// A nil bound means no check on that side.
func breaches(value float64, min, max *float64) bool {
	if min != nil && value < *min {
		return true
	}
	if max != nil && value > *max {
		return true
	}
	return false
}
