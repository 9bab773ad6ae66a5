package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vitalwatch/internal/engine"
	"vitalwatch/internal/handlers"
	"vitalwatch/internal/history"
	"vitalwatch/internal/models"
	"vitalwatch/internal/registry"
)

func f(v float64) *float64 { return &v }

func newHandler(reg *registry.Registry) *handlers.IngestHandler {
	hist := history.NewStore(history.Config{Retention: 24 * time.Hour})
	eng := engine.New(hist, reg, nil)
	return handlers.NewIngestHandler(handlers.IngestConfig{Engine: eng})
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, handlers.IngestResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/readings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp handlers.IngestResponse
	if rec.Code == http.StatusOK || rec.Code == http.StatusBadRequest {
		json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func TestIngestSingleReading(t *testing.T) {
	reg := registry.New()
	reg.Set("subj-1", []models.Threshold{{
		Metric:      models.MetricHeartRate,
		CriticalMax: f(140),
	}})
	h := newHandler(reg)

	rec, resp := post(t, h, `{"subject_id":"subj-1","metric":"heart_rate","value":145,"unit":"bpm"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Accepted != 1 || resp.Rejected != 0 {
		t.Fatalf("accepted/rejected = %d/%d, want 1/0", resp.Accepted, resp.Rejected)
	}
	if len(resp.Results) != 1 || len(resp.Results[0].Triggers) != 1 {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if resp.Results[0].Triggers[0] != "critical_threshold" {
		t.Errorf("trigger = %q, want critical_threshold", resp.Results[0].Triggers[0])
	}
}

func TestIngestBatchPartialRejection(t *testing.T) {
	h := newHandler(registry.New())

	body := `{"readings":[
		{"subject_id":"subj-1","metric":"heart_rate","value":72,"unit":"bpm"},
		{"subject_id":"subj-1","metric":"mood","value":5}
	]}`
	rec, resp := post(t, h, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for partial acceptance", rec.Code)
	}
	if resp.Accepted != 1 || resp.Rejected != 1 {
		t.Fatalf("accepted/rejected = %d/%d, want 1/1", resp.Accepted, resp.Rejected)
	}
	if resp.Results[1].Error == "" {
		t.Error("rejected reading should carry an error")
	}
	if resp.Success {
		t.Error("partial rejection should not report success")
	}
}

func TestIngestAllRejected(t *testing.T) {
	h := newHandler(registry.New())

	rec, resp := post(t, h, `{"subject_id":"","metric":"heart_rate","value":72}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp.Accepted != 0 || resp.Rejected != 1 {
		t.Fatalf("accepted/rejected = %d/%d, want 0/1", resp.Accepted, resp.Rejected)
	}
}

func TestIngestFutureTimestampRejected(t *testing.T) {
	h := newHandler(registry.New())

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	rec, resp := post(t, h, `{"subject_id":"subj-1","metric":"heart_rate","value":72,"observed_at":"`+future+`"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp.Results[0].Error != models.ErrFutureTimestamp.Error() {
		t.Errorf("error = %q, want %q", resp.Results[0].Error, models.ErrFutureTimestamp.Error())
	}
}

func TestIngestInvalidJSON(t *testing.T) {
	h := newHandler(registry.New())

	rec, _ := post(t, h, `{{{`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestMethodNotAllowed(t *testing.T) {
	h := newHandler(registry.New())

	req := httptest.NewRequest(http.MethodGet, "/v1/readings", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestIngestArrayBody(t *testing.T) {
	h := newHandler(registry.New())

	rec, resp := post(t, h, `[
		{"subject_id":"subj-1","metric":"heart_rate","value":72,"unit":"bpm"},
		{"subject_id":"subj-2","metric":"temperature","value":37.2,"unit":"C"}
	]`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Accepted != 2 {
		t.Fatalf("accepted = %d, want 2", resp.Accepted)
	}
}
