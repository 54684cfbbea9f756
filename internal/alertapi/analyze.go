package alertapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/detect"
)

type analyzeRequest struct {
	Transcript string    `json:"transcript"`
	Volume     *float64  `json:"volume,omitempty"`
	Pitch      *float64  `json:"pitch,omitempty"`
	Audio      []float32 `json:"audio,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
}

type analyzeResponse struct {
	detect.DetectionResult
	Alert *alerting.Alert `json:"alert,omitempty"`
}

// handleAnalyze runs one detection pass over the posted sample and, when
// distress is detected, opens a pending alert.
func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.Transcript == "" && len(req.Audio) == 0 {
		http.Error(w, `{"error":"transcript or audio is required"}`, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	transcript := req.Transcript
	if transcript == "" && a.transcriber != nil && a.transcriber.Available() {
		text, err := a.transcriber.Transcribe(ctx, req.Audio, req.SampleRate)
		if err != nil {
			// Detection continues on audio alone.
			a.logger.Error(ctx, err, "transcription failed, analyzing audio only")
		} else {
			transcript = text
		}
	}

	result := a.detector.Analyze(ctx, detect.Sample{
		Transcript: transcript,
		Volume:     req.Volume,
		Pitch:      req.Pitch,
		Audio:      req.Audio,
		SampleRate: req.SampleRate,
	})

	span.SetAttributes(
		attribute.Bool("beacon.detect.distress", result.DistressDetected),
		attribute.Float64("beacon.detect.confidence", result.Confidence),
	)

	resp := analyzeResponse{DetectionResult: result}
	if result.DistressDetected {
		alert, err := a.alerts.Trigger(ctx, result)
		if err != nil {
			a.logger.Error(ctx, err, "failed to open alert for detection")
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		resp.Alert = alert
		span.SetAttributes(attribute.String("beacon.alert.id", alert.ID))
	}

	writeJSON(w, http.StatusOK, resp)
}
