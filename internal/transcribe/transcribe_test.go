package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linnemanlabs/go-core/log"
)

func TestTranscribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var req recognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SampleRate != 16000 || len(req.Audio) != 3 {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(recognizeResponse{Text: "  help me please \n"})
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(srv.URL, "sk-test", log.Nop())
	text, err := r.Transcribe(context.Background(), []float32{0.1, 0.2, 0.3}, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "help me please" {
		t.Errorf("text = %q, want trimmed transcript", text)
	}
}

func TestTranscribeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(srv.URL, "", log.Nop())
	if _, err := r.Transcribe(context.Background(), []float32{0.1}, 16000); err == nil {
		t.Fatal("want error on non-200 response")
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	t.Parallel()

	r := NewHTTPRecognizer("http://unused.invalid", "", log.Nop())
	text, err := r.Transcribe(context.Background(), nil, 16000)
	if err != nil || text != "" {
		t.Errorf("Transcribe(empty) = %q, %v", text, err)
	}
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	var d Disabled
	if d.Available() {
		t.Error("Disabled.Available() = true")
	}
	text, err := d.Transcribe(context.Background(), []float32{1}, 16000)
	if err != nil || text != "" {
		t.Errorf("Transcribe = %q, %v", text, err)
	}
}
