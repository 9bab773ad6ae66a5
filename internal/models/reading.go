package models

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Metric identifies a physiological quantity tracked per subject
type Metric string

const (
	MetricHeartRate        Metric = "heart_rate"
	MetricBPSystolic       Metric = "blood_pressure_systolic"
	MetricBPDiastolic      Metric = "blood_pressure_diastolic"
	MetricRespiratoryRate  Metric = "respiratory_rate"
	MetricTemperature      Metric = "temperature"
	MetricOxygenSaturation Metric = "oxygen_saturation"
	MetricBloodGlucose     Metric = "blood_glucose"
	MetricWeight           Metric = "weight"
)

// Reading is a single timestamped observation of a metric for a subject.
// Immutable once validated; the engine never mutates a stored reading.
type Reading struct {
	// Subject the reading belongs to
	SubjectID string `json:"subject_id"`

	// Which physiological quantity was observed
	Metric Metric `json:"metric"`

	// Observed value in Unit
	Value float64 `json:"value"`

	// Unit of measure, e.g. "bpm", "mmHg"
	Unit string `json:"unit"`

	// When the observation was taken
	ObservedAt time.Time `json:"observed_at"`
}

// Validation errors
var (
	ErrEmptySubjectID   = errors.New("subject ID cannot be empty")
	ErrUnknownMetric    = errors.New("unknown metric kind")
	ErrValueNotFinite   = errors.New("value must be a finite number")
	ErrFutureTimestamp  = errors.New("observed_at cannot be in the future")
	ErrInvalidTimestamp = errors.New("invalid timestamp format")
)

// ClockSkewTolerance is how far ahead of the ingest clock an observed_at
// may be before the reading is rejected.
const ClockSkewTolerance = time.Minute

// Normalize trims identifier fields and lower-cases the metric name.
func (r *Reading) Normalize() {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.Metric = Metric(strings.ToLower(strings.TrimSpace(string(r.Metric))))
	r.Unit = strings.TrimSpace(r.Unit)
}

// Validate checks the reading against ingestion constraints. A zero
// ObservedAt is allowed here; the engine stamps it at ingest time.
func (r *Reading) Validate() error {
	if r.SubjectID == "" {
		return ErrEmptySubjectID
	}

	if !r.Metric.IsValid() {
		return ErrUnknownMetric
	}

	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return ErrValueNotFinite
	}

	if !r.ObservedAt.IsZero() && r.ObservedAt.After(time.Now().Add(ClockSkewTolerance)) {
		return ErrFutureTimestamp
	}

	return nil
}

// IsValid reports whether the metric is one of the registered kinds
func (m Metric) IsValid() bool {
	switch m {
	case MetricHeartRate, MetricBPSystolic, MetricBPDiastolic,
		MetricRespiratoryRate, MetricTemperature, MetricOxygenSaturation,
		MetricBloodGlucose, MetricWeight:
		return true
	default:
		return false
	}
}

// SupportedTimestampFormats lists formats we attempt to parse
var SupportedTimestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.UnixDate,
}

// ParseTimestamp attempts to parse a timestamp string into time.Time.
// An empty string parses to the zero time, meaning "stamp at ingest".
func ParseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, nil
	}

	for _, format := range SupportedTimestampFormats {
		if t, err := time.Parse(format, ts); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, ErrInvalidTimestamp
}
