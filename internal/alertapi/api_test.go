package alertapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/contacts"
	"github.com/linnemanlabs/beacon/internal/detect"
)

type stubDetector struct {
	result detect.DetectionResult
	last   detect.Sample
}

func (d *stubDetector) Analyze(_ context.Context, s detect.Sample) detect.DetectionResult {
	d.last = s
	r := d.result
	r.Transcript = s.Transcript
	return r
}

type stubAlerts struct {
	triggered []detect.DetectionResult
	cancels   []string
	confirms  []string
	outcome   alerting.Outcome
	active    []alerting.Alert
	history   []alerting.Alert
	total     int
}

func (s *stubAlerts) Trigger(_ context.Context, res detect.DetectionResult) (*alerting.Alert, error) {
	s.triggered = append(s.triggered, res)
	return &alerting.Alert{
		ID:         "01STUB",
		CreatedAt:  time.Now(),
		Source:     "help",
		Confidence: res.Confidence,
		Status:     alerting.StatusPendingConfirmation,
	}, nil
}

func (s *stubAlerts) Cancel(_ context.Context, id string) (alerting.Outcome, error) {
	s.cancels = append(s.cancels, id)
	return s.outcome, nil
}

func (s *stubAlerts) Confirm(_ context.Context, id string) (alerting.Outcome, error) {
	s.confirms = append(s.confirms, id)
	return s.outcome, nil
}

func (s *stubAlerts) Active(context.Context) ([]alerting.Alert, error) {
	return s.active, nil
}

func (s *stubAlerts) History(_ context.Context, limit int) ([]alerting.Alert, int, error) {
	if limit > 0 && limit < len(s.history) {
		return s.history[:limit], s.total, nil
	}
	return s.history, s.total, nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (t *stubTranscriber) Available() bool { return true }

func (t *stubTranscriber) Transcribe(context.Context, []float32, int) (string, error) {
	return t.text, t.err
}

func newTestRouter(t *testing.T) (chi.Router, *stubDetector, *stubAlerts) {
	t.Helper()
	detector := &stubDetector{result: detect.DetectionResult{
		Confidence: detect.ConfidenceNone,
		Emotion:    string(detect.LabelNeutral),
		Reason:     "no keyword",
	}}
	alerts := &stubAlerts{outcome: alerting.Outcome{OK: true, Message: "ok"}}

	settings, err := contacts.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("contacts.Load: %v", err)
	}

	api := New(nil, detector, alerts, &stubTranscriber{}, settings)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, detector, alerts
}

func doJSON(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeDetectionOpensAlert(t *testing.T) {
	t.Parallel()

	r, detector, alerts := newTestRouter(t)
	detector.result = detect.DetectionResult{
		DistressDetected: true,
		Confidence:       detect.ConfidenceKeyword,
		Emotion:          string(detect.LabelNeutral),
		Reason:           "keyword: 'help'",
	}

	rec := doJSON(t, r, http.MethodPost, "/api/v1/analyze", `{"transcript":"help me please"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.DistressDetected || resp.Alert == nil {
		t.Errorf("response = %+v, want detection with alert", resp)
	}
	if len(alerts.triggered) != 1 {
		t.Errorf("triggered %d alerts, want 1", len(alerts.triggered))
	}
}

func TestAnalyzeNoDetectionNoAlert(t *testing.T) {
	t.Parallel()

	r, _, alerts := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/analyze", `{"transcript":"lovely weather today"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(alerts.triggered) != 0 {
		t.Errorf("triggered %d alerts, want 0", len(alerts.triggered))
	}

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Alert != nil {
		t.Error("alert attached to a negative detection")
	}
}

func TestAnalyzeValidation(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty input", `{}`, http.StatusBadRequest},
		{"invalid JSON", `{bad`, http.StatusBadRequest},
		{"audio only", `{"audio":[0.1,0.2],"sample_rate":16000}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, r, http.MethodPost, "/api/v1/analyze", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAnalyzeTranscribesAudio(t *testing.T) {
	t.Parallel()

	detector := &stubDetector{}
	alerts := &stubAlerts{}
	settings, err := contacts.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	api := New(nil, detector, alerts, &stubTranscriber{text: "help me"}, settings)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/analyze", `{"audio":[0.1,0.2],"sample_rate":16000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if detector.last.Transcript != "help me" {
		t.Errorf("detector saw transcript %q, want the transcription", detector.last.Transcript)
	}
}

func TestCancelAndConfirmRouting(t *testing.T) {
	t.Parallel()

	r, _, alerts := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/alerts/abc/cancel", "")
	if rec.Code != http.StatusOK {
		t.Errorf("cancel status = %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/alerts/abc/confirm", "")
	if rec.Code != http.StatusOK {
		t.Errorf("confirm status = %d", rec.Code)
	}
	if len(alerts.cancels) != 1 || alerts.cancels[0] != "abc" {
		t.Errorf("cancels = %v", alerts.cancels)
	}
	if len(alerts.confirms) != 1 || alerts.confirms[0] != "abc" {
		t.Errorf("confirms = %v", alerts.confirms)
	}
}

func TestResolveUnknownAlertIs404(t *testing.T) {
	t.Parallel()

	r, _, alerts := newTestRouter(t)
	alerts.outcome = alerting.Outcome{NotFound: true, Message: "alert not found"}

	rec := doJSON(t, r, http.MethodPost, "/api/v1/alerts/missing/cancel", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestResolveSettledAlertIs200(t *testing.T) {
	t.Parallel()

	r, _, alerts := newTestRouter(t)
	alerts.outcome = alerting.Outcome{Message: "alert already cancelled"}

	// A settled alert is a refusal in the body, not a 404: status routing
	// keys off the NotFound flag, never the message text.
	rec := doJSON(t, r, http.MethodPost, "/api/v1/alerts/01SETTLED/confirm", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestActiveAndHistory(t *testing.T) {
	t.Parallel()

	r, _, alerts := newTestRouter(t)
	alerts.active = []alerting.Alert{{ID: "a1", Status: alerting.StatusPendingConfirmation}}
	alerts.history = []alerting.Alert{
		{ID: "h2", Status: alerting.StatusResponded},
		{ID: "h1", Status: alerting.StatusCancelled},
	}
	alerts.total = 2

	rec := doJSON(t, r, http.MethodGet, "/api/v1/alerts/active", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("active status = %d", rec.Code)
	}
	var activeResp struct {
		Alerts []alerting.Alert `json:"alerts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &activeResp); err != nil {
		t.Fatal(err)
	}
	if len(activeResp.Alerts) != 1 || activeResp.Alerts[0].ID != "a1" {
		t.Errorf("active = %+v", activeResp.Alerts)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/alerts/history?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var histResp struct {
		Alerts []alerting.Alert `json:"alerts"`
		Total  int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &histResp); err != nil {
		t.Fatal(err)
	}
	if len(histResp.Alerts) != 1 || histResp.Total != 2 {
		t.Errorf("history = %d items, total %d", len(histResp.Alerts), histResp.Total)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/alerts/history?limit=nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestContactsEndpoints(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/contacts", `{"name":"Alice","email":"alice@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/contacts", `{"name":"","email":"x@y.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid contact status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/contacts", `{"name":"Bob","email":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid email status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/contacts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listResp struct {
		Contacts []contacts.Contact `json:"contacts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatal(err)
	}
	if len(listResp.Contacts) != 1 || listResp.Contacts[0].Name != "Alice" {
		t.Errorf("contacts = %+v", listResp.Contacts)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	body := `{"smtp":{"host":"smtp.example.com","port":465,"username":"u","password":"p","from":"u@example.com"},"window_seconds":30,"use_location":false}`
	rec := doJSON(t, r, http.MethodPut, "/api/v1/settings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got contacts.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.WindowSeconds != 30 || got.UseLocation || got.SMTP.Host != "smtp.example.com" {
		t.Errorf("settings = %+v", got)
	}
	if strings.Contains(rec.Body.String(), `"p"`) {
		t.Error("settings response leaked the smtp password")
	}
}

func FuzzAnalyze(f *testing.F) {
	detector := &stubDetector{}
	alerts := &stubAlerts{}
	settings, err := contacts.Load(filepath.Join(f.TempDir(), "settings.yaml"))
	if err != nil {
		f.Fatal(err)
	}
	api := New(nil, detector, alerts, &stubTranscriber{}, settings)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	f.Add(`{"transcript":"help me please"}`)
	f.Add(`{"transcript":"","audio":[0.1],"sample_rate":16000}`)
	f.Add(`{}`)
	f.Add(`{bad`)
	f.Add(`{"transcript":"x","volume":1.5,"pitch":-3}`)
	f.Add(string([]byte{0x00, 0xff, 0xfe}))
	f.Add(`{"audio":[` + strings.Repeat("0.5,", 999) + `0.5]}`)

	f.Fuzz(func(t *testing.T, body string) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		// Must not panic
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK && rec.Code != http.StatusBadRequest {
			t.Errorf("unexpected status %d for body %q", rec.Code, body)
		}
	})
}
