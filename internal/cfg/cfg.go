package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds beacon-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	SettingsPath          string
	ModelDir              string
	AlarmSoundPath        string
	RecognizerEndpoint    string
	RecognizerAPIKey      string
	SlackWebhookURL       string
	APIToken              string
	Keywords              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SettingsPath, "settings-path", "beacon_settings.yaml", "path to the persisted contacts and settings record")
	fs.StringVar(&c.ModelDir, "model-dir", "", "directory holding emotion classifier bundles (empty = keyword and acoustic detection only)")
	fs.StringVar(&c.AlarmSoundPath, "alarm-sound-path", "data/alarm.wav", "alarm sound file played on escalation")
	fs.StringVar(&c.RecognizerEndpoint, "recognizer-endpoint", "", "speech recognition service endpoint (empty = transcription disabled)")
	fs.StringVar(&c.RecognizerAPIKey, "recognizer-api-key", "", "API key for the speech recognition service")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = auth disabled)")
	fs.StringVar(&c.Keywords, "keywords", "", "comma-separated distress vocabulary override")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The settings record is where contacts live; without it escalation
	// has nobody to notify.
	if c.SettingsPath == "" {
		errs = append(errs, errors.New("SETTINGS_PATH is required"))
	}

	if c.RecognizerAPIKey != "" && c.RecognizerEndpoint == "" {
		errs = append(errs, errors.New("RECOGNIZER_API_KEY set without RECOGNIZER_ENDPOINT"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
