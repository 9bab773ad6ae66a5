package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity of a dispatched alert
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

// TriggerKind classifies why a reading raised an alert.
type TriggerKind uint8

const (
	TriggerCriticalThreshold TriggerKind = iota
	TriggerWarningThreshold
	TriggerRapidChange
)

// String returns the stable wire name of the trigger kind.
func (k TriggerKind) String() string {
	switch k {
	case TriggerCriticalThreshold:
		return "critical_threshold"
	case TriggerWarningThreshold:
		return "warning_threshold"
	case TriggerRapidChange:
		return "rapid_change"
	default:
		return "unknown"
	}
}

// Describe returns the human-readable phrase used in alert messages.
func (k TriggerKind) Describe() string {
	switch k {
	case TriggerCriticalThreshold:
		return "Critical threshold exceeded"
	case TriggerWarningThreshold:
		return "Warning threshold breached"
	case TriggerRapidChange:
		return "Rapid change detected"
	default:
		return "Unknown trigger"
	}
}

// MarshalJSON emits the stable wire name rather than the enum value.
func (k TriggerKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses the wire name back into a kind.
func (k *TriggerKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "critical_threshold":
		*k = TriggerCriticalThreshold
	case "warning_threshold":
		*k = TriggerWarningThreshold
	case "rapid_change":
		*k = TriggerRapidChange
	default:
		return fmt.Errorf("unknown trigger kind %q", name)
	}
	return nil
}

// TriggerSet is the set of classifications produced by one evaluation.
// Kinds are kept in enum order so formatting is deterministic.
type TriggerSet []TriggerKind

// Add inserts a kind, keeping the set deduplicated and ordered.
func (s TriggerSet) Add(k TriggerKind) TriggerSet {
	for i, existing := range s {
		if existing == k {
			return s
		}
		if existing > k {
			return append(s[:i], append(TriggerSet{k}, s[i:]...)...)
		}
	}
	return append(s, k)
}

// Has reports whether the set contains the given kind.
func (s TriggerSet) Has(k TriggerKind) bool {
	for _, existing := range s {
		if existing == k {
			return true
		}
	}
	return false
}

// Describe joins the trigger phrases in enum order.
func (s TriggerSet) Describe() string {
	phrases := make([]string, len(s))
	for i, k := range s {
		phrases[i] = k.Describe()
	}
	return strings.Join(phrases, ", ")
}

// Severity derives alert severity from the set: critical wins, anything
// else that fired is high.
func (s TriggerSet) Severity() Severity {
	if s.Has(TriggerCriticalThreshold) {
		return SeverityCritical
	}
	return SeverityHigh
}

// Names returns the wire names of the kinds, for responses and logs.
func (s TriggerSet) Names() []string {
	names := make([]string, len(s))
	for i, k := range s {
		names[i] = k.String()
	}
	return names
}

// Alert is the record handed off to the persistence and delivery
// collaborators. Immutable after construction; the engine keeps no
// reference once dispatched.
type Alert struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	Metric      Metric     `json:"metric"`
	Value       float64    `json:"value"`
	Unit        string     `json:"unit"`
	ObservedAt  time.Time  `json:"observed_at"`
	Triggers    TriggerSet `json:"triggers"`
	Severity    Severity   `json:"severity"`
	RecipientID string     `json:"recipient_id,omitempty"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewAlert builds an alert for a triggering reading. Title and message
// formatting is deterministic: metric, value, unit, then the trigger
// phrases in enum order.
func NewAlert(r *Reading, triggers TriggerSet) *Alert {
	return &Alert{
		ID:         uuid.New().String(),
		SubjectID:  r.SubjectID,
		Metric:     r.Metric,
		Value:      r.Value,
		Unit:       r.Unit,
		ObservedAt: r.ObservedAt,
		Triggers:   triggers,
		Severity:   triggers.Severity(),
		Title:      fmt.Sprintf("%s alert for subject %s", r.Metric, r.SubjectID),
		Message:    fmt.Sprintf("%s reading of %g%s - %s", r.Metric, r.Value, r.Unit, triggers.Describe()),
		CreatedAt:  time.Now().UTC(),
	}
}
