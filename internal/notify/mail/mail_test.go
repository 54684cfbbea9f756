package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/contacts"
	"github.com/linnemanlabs/beacon/internal/locate"
)

func testCreds() contacts.SMTPConfig {
	return contacts.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "beacon@example.com",
		Password: "secret",
		From:     "beacon@example.com",
	}
}

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

func TestSendAlert(t *testing.T) {
	t.Parallel()

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	m := NewWithSender(testCreds, send, log.Nop())
	loc := locate.Location{Latitude: "52.37", Longitude: "4.89", Address: "Amsterdam, NL"}
	if err := m.SendAlert(context.Background(), "alice@example.com", testAlert(), loc); err != nil {
		t.Fatalf("SendAlert: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "beacon@example.com" || len(gotTo) != 1 || gotTo[0] != "alice@example.com" {
		t.Errorf("from = %q, to = %v", gotFrom, gotTo)
	}

	msg := string(gotMsg)
	for _, want := range []string{
		"Subject: EMERGENCY ALERT - Distress Detected",
		"- Confidence: 90.0%",
		"- Address: Amsterdam, NL",
		"- Coordinates: 52.37, 4.89",
		"- Detected at: 2026-03-14T09:26:53Z",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendAlertUnconfigured(t *testing.T) {
	t.Parallel()

	called := false
	send := func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	m := NewWithSender(func() contacts.SMTPConfig { return contacts.SMTPConfig{} }, send, log.Nop())
	err := m.SendAlert(context.Background(), "alice@example.com", testAlert(), locate.Unavailable())
	if err == nil {
		t.Fatal("want error when smtp is not configured")
	}
	if called {
		t.Error("transport invoked without configuration")
	}
}

func TestSendAlertInvalidRecipient(t *testing.T) {
	t.Parallel()

	m := NewWithSender(testCreds, func(string, smtp.Auth, string, []string, []byte) error {
		t.Error("transport invoked for invalid recipient")
		return nil
	}, log.Nop())

	if err := m.SendAlert(context.Background(), "not-an-email", testAlert(), locate.Unavailable()); err == nil {
		t.Fatal("want error for invalid recipient")
	}
}

func TestFromDefaultsToUsername(t *testing.T) {
	t.Parallel()

	creds := func() contacts.SMTPConfig {
		c := testCreds()
		c.From = ""
		return c
	}

	var gotFrom string
	m := NewWithSender(creds, func(_ string, _ smtp.Auth, from string, _ []string, _ []byte) error {
		gotFrom = from
		return nil
	}, log.Nop())

	if err := m.SendAlert(context.Background(), "alice@example.com", testAlert(), locate.Unavailable()); err != nil {
		t.Fatalf("SendAlert: %v", err)
	}
	if gotFrom != "beacon@example.com" {
		t.Errorf("from = %q, want username fallback", gotFrom)
	}
}
