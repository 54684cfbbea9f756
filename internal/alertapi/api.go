// Package alertapi exposes the detection and alert lifecycle over HTTP.
package alertapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/contacts"
	"github.com/linnemanlabs/beacon/internal/detect"
)

// Detector scores a sample for distress.
type Detector interface {
	Analyze(ctx context.Context, s detect.Sample) detect.DetectionResult
}

// AlertService defines the lifecycle operations alertapi needs.
type AlertService interface {
	Trigger(ctx context.Context, res detect.DetectionResult) (*alerting.Alert, error)
	Cancel(ctx context.Context, id string) (alerting.Outcome, error)
	Confirm(ctx context.Context, id string) (alerting.Outcome, error)
	Active(ctx context.Context) ([]alerting.Alert, error)
	History(ctx context.Context, limit int) ([]alerting.Alert, int, error)
}

// Transcriber converts posted audio into a transcript.
type Transcriber interface {
	Available() bool
	Transcribe(ctx context.Context, audio []float32, sampleRate int) (string, error)
}

// SettingsStore is the persisted contacts and settings record.
type SettingsStore interface {
	Snapshot() contacts.Record
	Contacts() []contacts.Contact
	Add(c contacts.Contact) error
	Update(smtp contacts.SMTPConfig, windowSeconds int, useLocation bool) error
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger      log.Logger
	detector    Detector
	alerts      AlertService
	transcriber Transcriber
	settings    SettingsStore
}

// New creates a new API handler.
func New(logger log.Logger, detector Detector, alerts AlertService, transcriber Transcriber, settings SettingsStore) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if detector == nil {
		panic(xerrors.New("detector is required"))
	}
	if alerts == nil {
		panic(xerrors.New("alert service is required"))
	}
	if settings == nil {
		panic(xerrors.New("settings store is required"))
	}
	return &API{
		logger:      logger,
		detector:    detector,
		alerts:      alerts,
		transcriber: transcriber,
		settings:    settings,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", a.handleAnalyze)
		r.Post("/alerts/{id}/cancel", a.handleCancelAlert)
		r.Post("/alerts/{id}/confirm", a.handleConfirmAlert)
		r.Get("/alerts/active", a.handleActiveAlerts)
		r.Get("/alerts/history", a.handleAlertHistory)
		r.Get("/contacts", a.handleListContacts)
		r.Post("/contacts", a.handleAddContact)
		r.Get("/settings", a.handleGetSettings)
		r.Put("/settings", a.handleUpdateSettings)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
