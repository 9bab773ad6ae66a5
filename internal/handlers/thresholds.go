package handlers

import (
	"encoding/json"
	"net/http"

	"vitalwatch/internal/engine"
	"vitalwatch/internal/models"
)

// ThresholdsHandler exposes the operator-facing threshold configuration:
// GET and PUT on /v1/subjects/{id}/thresholds. A PUT replaces the
// subject's whole list; the last write wins.
type ThresholdsHandler struct {
	engine *engine.Engine
}

// NewThresholdsHandler creates a thresholds handler.
func NewThresholdsHandler(eng *engine.Engine) *ThresholdsHandler {
	return &ThresholdsHandler{engine: eng}
}

// ThresholdsResponse wraps a subject's threshold list.
type ThresholdsResponse struct {
	SubjectID  string             `json:"subject_id"`
	Thresholds []models.Threshold `json:"thresholds"`
}

// Get handles GET /v1/subjects/{id}/thresholds.
func (h *ThresholdsHandler) Get(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("id")
	if subjectID == "" {
		h.writeError(w, http.StatusBadRequest, "subject id required")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ThresholdsResponse{
		SubjectID:  subjectID,
		Thresholds: h.engine.GetThresholds(subjectID),
	})
}

// Put handles PUT /v1/subjects/{id}/thresholds.
func (h *ThresholdsHandler) Put(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("id")
	if subjectID == "" {
		h.writeError(w, http.StatusBadRequest, "subject id required")
		return
	}

	var thresholds []models.Threshold
	if err := json.NewDecoder(r.Body).Decode(&thresholds); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	for _, t := range thresholds {
		if !t.Metric.IsValid() {
			h.writeError(w, http.StatusBadRequest, "unknown metric: "+string(t.Metric))
			return
		}
	}

	h.engine.SetThresholds(subjectID, thresholds)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ThresholdsResponse{
		SubjectID:  subjectID,
		Thresholds: h.engine.GetThresholds(subjectID),
	})
}

func (h *ThresholdsHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
