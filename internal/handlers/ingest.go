package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"vitalwatch/internal/engine"
	"vitalwatch/internal/models"
)

// IngestHandler accepts vital-sign readings over HTTP and feeds them to
// the alerting engine.
type IngestHandler struct {
	engine      *engine.Engine
	maxBodySize int64
}

// IngestConfig holds configuration for the ingest handler
type IngestConfig struct {
	Engine      *engine.Engine
	MaxBodySize int64
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(cfg IngestConfig) *IngestHandler {
	maxBodySize := cfg.MaxBodySize
	if maxBodySize == 0 {
		maxBodySize = 1 * 1024 * 1024 // 1MB default
	}

	return &IngestHandler{
		engine:      cfg.Engine,
		maxBodySize: maxBodySize,
	}
}

// ReadingInput is the input format for readings (with string timestamp)
type ReadingInput struct {
	SubjectID  string  `json:"subject_id"`
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	ObservedAt string  `json:"observed_at,omitempty"` // optional, defaults to ingest time
}

// IngestRequest represents the incoming JSON payload (single or batch)
type IngestRequest struct {
	Reading  *ReadingInput  `json:"reading,omitempty"`
	Readings []ReadingInput `json:"readings,omitempty"`
}

// ReadingResult reports the outcome for one reading.
type ReadingResult struct {
	Index    int      `json:"index"`
	Accepted bool     `json:"accepted"`
	Triggers []string `json:"triggers,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// IngestResponse is the response returned to clients
type IngestResponse struct {
	Success  bool            `json:"success"`
	Accepted int             `json:"accepted"`
	Rejected int             `json:"rejected"`
	Results  []ReadingResult `json:"results"`
}

// ServeHTTP handles the ingest HTTP request
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && contentType != "" {
		h.writeError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	inputs, err := h.parseBody(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(inputs) == 0 {
		h.writeError(w, http.StatusBadRequest, "no readings provided")
		return
	}

	response := h.processReadings(r, inputs)

	w.Header().Set("Content-Type", "application/json")
	if response.Rejected > 0 && response.Accepted == 0 {
		w.WriteHeader(http.StatusBadRequest)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(response)
}

// parseBody parses the JSON body into a slice of ReadingInput
func (h *IngestHandler) parseBody(body []byte) ([]ReadingInput, error) {
	// Try parsing as IngestRequest first
	var req IngestRequest
	if err := json.Unmarshal(body, &req); err == nil {
		if len(req.Readings) > 0 {
			return req.Readings, nil
		}
		if req.Reading != nil {
			return []ReadingInput{*req.Reading}, nil
		}
	}

	// Try parsing as array of readings
	var inputs []ReadingInput
	if err := json.Unmarshal(body, &inputs); err == nil && len(inputs) > 0 {
		return inputs, nil
	}

	// Try parsing as single reading
	var single ReadingInput
	if err := json.Unmarshal(body, &single); err == nil && single.SubjectID != "" {
		return []ReadingInput{single}, nil
	}

	return nil, fmt.Errorf("invalid JSON format: expected reading object or array of readings")
}

// processReadings converts inputs and runs each through the engine
func (h *IngestHandler) processReadings(r *http.Request, inputs []ReadingInput) IngestResponse {
	response := IngestResponse{
		Success: true,
		Results: make([]ReadingResult, 0, len(inputs)),
	}

	for i, input := range inputs {
		reading, err := h.convertInput(input)
		if err != nil {
			response.Results = append(response.Results, ReadingResult{
				Index: i,
				Error: err.Error(),
			})
			response.Rejected++
			continue
		}

		triggers, err := h.engine.Ingest(r.Context(), reading)
		if err != nil {
			response.Results = append(response.Results, ReadingResult{
				Index: i,
				Error: err.Error(),
			})
			response.Rejected++
			continue
		}

		response.Results = append(response.Results, ReadingResult{
			Index:    i,
			Accepted: true,
			Triggers: triggers.Names(),
		})
		response.Accepted++
	}

	response.Success = response.Rejected == 0
	return response
}

// convertInput converts ReadingInput to models.Reading
func (h *IngestHandler) convertInput(input ReadingInput) (*models.Reading, error) {
	ts, err := models.ParseTimestamp(input.ObservedAt)
	if err != nil {
		return nil, fmt.Errorf("observed_at: %w", err)
	}

	return &models.Reading{
		SubjectID:  input.SubjectID,
		Metric:     models.Metric(input.Metric),
		Value:      input.Value,
		Unit:       input.Unit,
		ObservedAt: ts,
	}, nil
}

// writeError writes an error response
func (h *IngestHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
