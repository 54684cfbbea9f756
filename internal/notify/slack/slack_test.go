package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/locate"
)

func testAlert() *alerting.Alert {
	return &alerting.Alert{
		ID:         "01TEST",
		CreatedAt:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Source:     "help",
		Confidence: 0.9,
		Message:    "Distress detected: help me please",
		Status:     alerting.StatusConfirmed,
	}
}

func TestSendPostsBlocks(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	loc := locate.Location{Latitude: "52.37", Longitude: "4.89", Address: "Amsterdam, NL"}
	if err := n.Send(context.Background(), testAlert(), loc); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var msg struct {
		Blocks []json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(gotBody, &msg); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(msg.Blocks) == 0 {
		t.Fatal("payload has no blocks")
	}

	payload := string(gotBody)
	for _, want := range []string{"90.0%", "Amsterdam, NL", "alert 01TEST"} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestSendNoWebhookIsNoop(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())
	if err := n.Send(context.Background(), testAlert(), locate.Unavailable()); err != nil {
		t.Fatalf("Send with empty webhook: %v", err)
	}
}

func TestSendNon2xxFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.Send(context.Background(), testAlert(), locate.Unavailable())
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("Send error = %v, want webhook status error", err)
	}
}
