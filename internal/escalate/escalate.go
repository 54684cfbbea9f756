// Package escalate carries out the emergency response once an alert is
// confirmed: resolve a location, sound the alarm, and notify every
// configured contact and channel. Individual channel failures never abort
// the rest of the response.
package escalate

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/contacts"
	"github.com/linnemanlabs/beacon/internal/locate"
)

// Locator resolves the device position. Implementations never fail; they
// return a sentinel location instead.
type Locator interface {
	Locate(ctx context.Context) locate.Location
}

// AlarmPlayer sounds the local siren, best effort.
type AlarmPlayer interface {
	Play(ctx context.Context, soundPath string)
}

// Mailer delivers an alert email to one recipient.
type Mailer interface {
	SendAlert(ctx context.Context, to string, a *alerting.Alert, loc locate.Location) error
}

// Notifier is a broadcast channel such as a Slack webhook.
type Notifier interface {
	Name() string
	Send(ctx context.Context, a *alerting.Alert, loc locate.Location) error
}

// Settings exposes the parts of the contact record escalation needs.
type Settings interface {
	Contacts() []contacts.Contact
	UseLocation() bool
}

// Coordinator implements alerting.Escalator.
type Coordinator struct {
	locator   Locator
	alarm     AlarmPlayer
	soundPath string
	settings  Settings
	mailer    Mailer
	notifiers []Notifier
	logger    log.Logger
	metrics   *alerting.Metrics
}

// New assembles a Coordinator. locator and alarm may be nil to skip those
// steps; a nil logger falls back to Nop; metrics may be nil.
func New(locator Locator, alarm AlarmPlayer, soundPath string, settings Settings, mailer Mailer, notifiers []Notifier, logger log.Logger, metrics *alerting.Metrics) *Coordinator {
	if settings == nil {
		panic(xerrors.New("escalate: settings are required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Coordinator{
		locator:   locator,
		alarm:     alarm,
		soundPath: soundPath,
		settings:  settings,
		mailer:    mailer,
		notifiers: notifiers,
		logger:    logger,
		metrics:   metrics,
	}
}

// Escalate runs the full response for a confirmed alert. Channel failures
// are logged and counted, never returned: a response was attempted, so the
// alert still settles as responded. An error here is reserved for an
// internal fault that prevented the response from running at all.
func (c *Coordinator) Escalate(ctx context.Context, a *alerting.Alert) error {
	loc := c.resolveLocation(ctx)

	if c.alarm != nil {
		c.alarm.Play(ctx, c.soundPath)
	}

	sent, failed := c.notifyContacts(ctx, a, loc)
	c.notifyChannels(ctx, a, loc)

	if failed > 0 && sent == 0 {
		c.logger.Warn(ctx, "no contact notification was delivered",
			"alert_id", a.ID, "contacts_failed", failed)
	}

	c.logger.Info(ctx, "escalation complete",
		"alert_id", a.ID,
		"contacts_notified", sent,
		"contacts_failed", failed,
		"location", loc.Address,
	)
	return nil
}

func (c *Coordinator) resolveLocation(ctx context.Context) locate.Location {
	if !c.settings.UseLocation() {
		return locate.Location{
			Latitude:  "Unknown",
			Longitude: "Unknown",
			Address:   "Location disabled",
		}
	}
	if c.locator == nil {
		return locate.Unavailable()
	}
	return c.locator.Locate(ctx)
}

func (c *Coordinator) notifyContacts(ctx context.Context, a *alerting.Alert, loc locate.Location) (sent, failed int) {
	list := c.settings.Contacts()
	if len(list) == 0 {
		c.logger.Info(ctx, "no emergency contacts configured, skipping email notifications", "alert_id", a.ID)
		return 0, 0
	}
	if c.mailer == nil {
		c.logger.Info(ctx, "no mailer configured, skipping email notifications", "alert_id", a.ID)
		return 0, 0
	}

	for _, contact := range list {
		if contact.Email == "" {
			c.logger.Info(ctx, "skipping contact without email", "contact", contact.Name)
			continue
		}
		if err := c.mailer.SendAlert(ctx, contact.Email, a, loc); err != nil {
			failed++
			c.observeSend("email", "error")
			c.logger.Error(ctx, err, "contact notification failed",
				"alert_id", a.ID, "contact", contact.Name)
			continue
		}
		sent++
		c.observeSend("email", "ok")
	}
	return sent, failed
}

func (c *Coordinator) notifyChannels(ctx context.Context, a *alerting.Alert, loc locate.Location) {
	for _, n := range c.notifiers {
		if err := n.Send(ctx, a, loc); err != nil {
			c.observeSend(n.Name(), "error")
			c.logger.Error(ctx, err, "channel notification failed",
				"alert_id", a.ID, "channel", n.Name())
			continue
		}
		c.observeSend(n.Name(), "ok")
	}
}

func (c *Coordinator) observeSend(channel, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.NotifySendsTotal.WithLabelValues(channel, status).Inc()
}
