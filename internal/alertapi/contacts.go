package alertapi

import (
	"encoding/json"
	"net/http"

	"github.com/linnemanlabs/beacon/internal/contacts"
)

func (a *API) handleListContacts(w http.ResponseWriter, r *http.Request) {
	list := a.settings.Contacts()
	if list == nil {
		list = []contacts.Contact{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": list})
}

func (a *API) handleAddContact(w http.ResponseWriter, r *http.Request) {
	var c contacts.Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if err := a.settings.Add(c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	a.logger.Info(r.Context(), "emergency contact added", "name", c.Name)
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.settings.Snapshot())
}

// smtpSettings mirrors contacts.SMTPConfig with the password writable;
// the stored record never serializes it back out.
type smtpSettings struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type updateSettingsRequest struct {
	SMTP          smtpSettings `json:"smtp"`
	WindowSeconds int          `json:"window_seconds"`
	UseLocation   bool         `json:"use_location"`
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	smtp := contacts.SMTPConfig{
		Host:     req.SMTP.Host,
		Port:     req.SMTP.Port,
		Username: req.SMTP.Username,
		Password: req.SMTP.Password,
		From:     req.SMTP.From,
	}
	if err := a.settings.Update(smtp, req.WindowSeconds, req.UseLocation); err != nil {
		a.logger.Error(r.Context(), err, "failed to update settings")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.logger.Info(r.Context(), "settings updated", "window_seconds", req.WindowSeconds)
	writeJSON(w, http.StatusOK, a.settings.Snapshot())
}
