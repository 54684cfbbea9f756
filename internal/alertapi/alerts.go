package alertapi

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/beacon/internal/alerting"
)

const defaultHistoryLimit = 50

func (a *API) handleCancelAlert(w http.ResponseWriter, r *http.Request) {
	a.resolveAlert(w, r, a.alerts.Cancel)
}

func (a *API) handleConfirmAlert(w http.ResponseWriter, r *http.Request) {
	a.resolveAlert(w, r, a.alerts.Confirm)
}

// resolveAlert shares the cancel/confirm plumbing. Unknown IDs are 404;
// settled alerts are reported in the outcome with a 200.
func (a *API) resolveAlert(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (alerting.Outcome, error)) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.alert.id", id))

	outcome, err := op(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "alert resolution failed", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if outcome.NotFound {
		writeJSON(w, http.StatusNotFound, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.alerts.Active(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list active alerts")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []alerting.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *API) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, total, err := a.alerts.History(r.Context(), limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list alert history")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []alerting.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": items,
		"total":  total,
	})
}
