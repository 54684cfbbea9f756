// Package transcribe converts captured audio to text through an external
// speech recognition service. Detection works without it; only keyword
// matching on the transcript is lost when no recognizer is configured.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const httpTimeout = 30 * time.Second

// Transcriber turns raw audio into a transcript.
type Transcriber interface {
	Name() string
	Available() bool
	Transcribe(ctx context.Context, audio []float32, sampleRate int) (string, error)
}

// HTTPRecognizer calls a whisper-style recognition endpoint.
type HTTPRecognizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   log.Logger
}

// NewHTTPRecognizer creates a recognizer client. apiKey may be empty for
// unauthenticated local services.
func NewHTTPRecognizer(endpoint, apiKey string, logger log.Logger) *HTTPRecognizer {
	if logger == nil {
		logger = log.Nop()
	}
	return &HTTPRecognizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: httpTimeout},
		logger:   logger,
	}
}

func (r *HTTPRecognizer) Name() string { return "http-recognizer" }

// Available reports whether an endpoint is configured.
func (r *HTTPRecognizer) Available() bool { return r.endpoint != "" }

type recognizeRequest struct {
	Audio      []float32 `json:"audio"`
	SampleRate int       `json:"sample_rate"`
	Language   string    `json:"language"`
}

type recognizeResponse struct {
	Text string `json:"text"`
}

// Transcribe posts the audio to the recognition service and returns the
// transcript, trimmed.
func (r *HTTPRecognizer) Transcribe(ctx context.Context, audio []float32, sampleRate int) (string, error) {
	if r.endpoint == "" {
		return "", fmt.Errorf("no recognition endpoint configured")
	}
	if len(audio) == 0 {
		return "", nil
	}

	body, err := json.Marshal(recognizeRequest{
		Audio:      audio,
		SampleRate: sampleRate,
		Language:   "en",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post audio: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("recognizer returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := strings.TrimSpace(out.Text)
	r.logger.Info(ctx, "audio transcribed", "chars", len(text))
	return text, nil
}

// Disabled is the no-op transcriber used when speech recognition is not
// configured.
type Disabled struct{}

func (Disabled) Name() string    { return "disabled" }
func (Disabled) Available() bool { return false }

func (Disabled) Transcribe(context.Context, []float32, int) (string, error) {
	return "", nil
}
