package models

// Threshold holds the alerting configuration for one metric of one subject.
// Every bound is optional; a nil bound means "no check for that bound".
// A subject's threshold list is replaced wholesale on update.
type Threshold struct {
	Metric Metric `json:"metric"`

	// Warning band
	WarningMin *float64 `json:"warning_min,omitempty"`
	WarningMax *float64 `json:"warning_max,omitempty"`

	// Critical band
	CriticalMin *float64 `json:"critical_min,omitempty"`
	CriticalMax *float64 `json:"critical_max,omitempty"`

	// Rate-of-change parameters; both must be set for the trend check to run
	TrendWindowMinutes    *int     `json:"trend_window_minutes,omitempty"`
	TrendPercentThreshold *float64 `json:"trend_percent_threshold,omitempty"`
}

// HasTrendConfig reports whether both trend parameters are configured.
func (t *Threshold) HasTrendConfig() bool {
	return t.TrendWindowMinutes != nil && t.TrendPercentThreshold != nil
}
