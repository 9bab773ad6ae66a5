package engine_test

import (
	"testing"
	"time"

	"vitalwatch/internal/engine"
	"vitalwatch/internal/models"
)

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }

func hr(value float64) *models.Reading {
	return &models.Reading{
		SubjectID:  "subj-1",
		Metric:     models.MetricHeartRate,
		Value:      value,
		Unit:       "bpm",
		ObservedAt: time.Now(),
	}
}

func TestEvaluateThresholdBands(t *testing.T) {
	th := models.Threshold{
		Metric:      models.MetricHeartRate,
		WarningMin:  f(60),
		WarningMax:  f(100),
		CriticalMin: f(50),
		CriticalMax: f(140),
	}

	tests := []struct {
		name  string
		value float64
		want  models.TriggerSet
	}{
		{"within all bands", 72, nil},
		{"above warning only", 110, models.TriggerSet{models.TriggerWarningThreshold}},
		{"below warning only", 55, models.TriggerSet{models.TriggerWarningThreshold}},
		{"above critical", 145, models.TriggerSet{models.TriggerCriticalThreshold}},
		{"below critical and warning", 45, models.TriggerSet{models.TriggerCriticalThreshold}},
		{"exactly at warning max", 100, nil},
		{"exactly at critical max", 140, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Evaluate(hr(tt.value), th, nil)
			assertTriggers(t, got, tt.want)
		})
	}
}

// A value breaching both bands on the same axis is classified only as
// critical; the warning check is shadowed on purpose.
func TestEvaluateCriticalShadowsWarning(t *testing.T) {
	th := models.Threshold{
		Metric:      models.MetricHeartRate,
		WarningMin:  f(60),
		CriticalMin: f(50),
	}

	got := engine.Evaluate(hr(40), th, nil)

	if !got.Has(models.TriggerCriticalThreshold) {
		t.Error("expected critical trigger")
	}
	if got.Has(models.TriggerWarningThreshold) {
		t.Error("warning must not fire alongside critical for the same axis")
	}
	if len(got) != 1 {
		t.Errorf("expected exactly one trigger, got %v", got)
	}
}

func TestEvaluateNoBoundsNoTriggers(t *testing.T) {
	got := engine.Evaluate(hr(500), models.Threshold{Metric: models.MetricHeartRate}, nil)
	if len(got) != 0 {
		t.Errorf("empty threshold produced triggers: %v", got)
	}
}

func TestEvaluateRapidChangeIsAdditive(t *testing.T) {
	th := models.Threshold{
		Metric:                models.MetricHeartRate,
		WarningMin:            f(60),
		WarningMax:            f(150),
		CriticalMax:           f(200),
		TrendWindowMinutes:    n(5),
		TrendPercentThreshold: f(20),
	}

	// 100 -> 130 is a 30% rise, inside warning and critical bounds
	window := trendWindow(100, 110, 130)
	got := engine.Evaluate(hr(130), th, window)

	assertTriggers(t, got, models.TriggerSet{models.TriggerRapidChange})

	// And it co-occurs with a threshold trigger
	window = trendWindow(100, 160)
	got = engine.Evaluate(hr(160), th, window)

	assertTriggers(t, got, models.TriggerSet{
		models.TriggerWarningThreshold,
		models.TriggerRapidChange,
	})
}

func TestEvaluateTrendNeedsBothParams(t *testing.T) {
	th := models.Threshold{
		Metric:             models.MetricHeartRate,
		TrendWindowMinutes: n(5), // threshold percent missing
	}

	got := engine.Evaluate(hr(130), th, trendWindow(100, 130))
	if len(got) != 0 {
		t.Errorf("trend fired with incomplete config: %v", got)
	}
}

func TestEvaluateTrendBelowThreshold(t *testing.T) {
	th := models.Threshold{
		Metric:                models.MetricHeartRate,
		TrendWindowMinutes:    n(5),
		TrendPercentThreshold: f(20),
	}

	got := engine.Evaluate(hr(110), th, trendWindow(100, 110)) // 10% < 20%
	if len(got) != 0 {
		t.Errorf("trend fired below threshold: %v", got)
	}
}

func assertTriggers(t *testing.T, got, want models.TriggerSet) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("triggers = %v, want %v", got.Names(), want.Names())
	}
	for _, k := range want {
		if !got.Has(k) {
			t.Fatalf("triggers = %v, want %v", got.Names(), want.Names())
		}
	}
}
