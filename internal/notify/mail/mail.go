// Package mail delivers emergency alert emails to configured contacts over
// SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/contacts"
	"github.com/linnemanlabs/beacon/internal/locate"
)

// SendFunc matches smtp.SendMail and exists for tests.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends alert notifications by email. Credentials are read per send
// so settings updates take effect without a restart.
type Mailer struct {
	creds  func() contacts.SMTPConfig
	send   SendFunc
	logger log.Logger
}

// New creates a Mailer. creds supplies the current SMTP settings; a nil
// logger falls back to Nop.
func New(creds func() contacts.SMTPConfig, logger log.Logger) *Mailer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Mailer{creds: creds, send: smtp.SendMail, logger: logger}
}

// NewWithSender is New with an injected transport for tests.
func NewWithSender(creds func() contacts.SMTPConfig, send SendFunc, logger log.Logger) *Mailer {
	m := New(creds, logger)
	m.send = send
	return m
}

// SendAlert emails one recipient about an escalated alert. STARTTLS is
// negotiated by the SMTP transport when the server offers it.
func (m *Mailer) SendAlert(ctx context.Context, to string, a *alerting.Alert, loc locate.Location) error {
	cfg := m.creds()
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return xerrors.New("smtp is not configured")
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid recipient address %q", to)
	}

	subject, body := BuildAlertEmail(a, loc)
	msg := buildMessage(from, to, subject, body)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := m.send(addr, auth, from, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	m.logger.Info(ctx, "alert email sent", "to", to, "alert_id", a.ID)
	return nil
}

// BuildAlertEmail renders the notification subject and plain text body.
func BuildAlertEmail(a *alerting.Alert, loc locate.Location) (subject, body string) {
	subject = "EMERGENCY ALERT - Distress Detected"

	var b strings.Builder
	b.WriteString("EMERGENCY ALERT\n\n")
	b.WriteString("Distress has been detected from the monitoring system.\n\n")
	b.WriteString("DETECTION DETAILS:\n")
	fmt.Fprintf(&b, "- Source: %s\n", a.Source)
	fmt.Fprintf(&b, "- Confidence: %.1f%%\n", a.Confidence*100)
	fmt.Fprintf(&b, "- Details: %s\n\n", a.Message)
	b.WriteString("LOCATION:\n")
	fmt.Fprintf(&b, "- Address: %s\n", loc.Address)
	fmt.Fprintf(&b, "- Coordinates: %s, %s\n\n", loc.Latitude, loc.Longitude)
	b.WriteString("TIME:\n")
	fmt.Fprintf(&b, "- Detected at: %s\n\n", a.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteString("Please respond immediately!\n\n")
	b.WriteString("This is an automated alert from the distress detection system.\n")
	return subject, b.String()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
