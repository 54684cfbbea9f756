// Package contacts manages the persisted emergency settings record: the
// people to notify on a confirmed alert, the confirmation window, and the
// SMTP credentials used to reach them. The record lives in a YAML file and
// survives restarts.
package contacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/go-core/xerrors"
)

// DefaultWindowSeconds is the confirmation window applied when the record
// does not set one.
const DefaultWindowSeconds = 10

// Contact is a single notification recipient.
type Contact struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// Record is the on-disk settings document.
type Record struct {
	SMTP          SMTPConfig `yaml:"smtp" json:"smtp"`
	WindowSeconds int        `yaml:"window_seconds" json:"window_seconds"`
	UseLocation   bool       `yaml:"use_location" json:"use_location"`
	Contacts      []Contact  `yaml:"contacts" json:"contacts"`
}

// SMTPConfig holds the outbound mail credentials.
type SMTPConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
	From     string `yaml:"from" json:"from"`
}

// Store is a concurrency-safe view over the settings record. Mutations are
// written back to disk before they become visible to readers.
type Store struct {
	path string

	mu  sync.RWMutex
	rec Record
}

// Load reads the record at path. A missing file yields a default record and
// no error; the file is created on first mutation.
func Load(path string) (*Store, error) {
	s := &Store{path: path, rec: defaultRecord()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	applyDefaults(&rec)
	s.rec = rec
	return s, nil
}

func defaultRecord() Record {
	return Record{
		WindowSeconds: DefaultWindowSeconds,
		UseLocation:   true,
		SMTP:          SMTPConfig{Port: 587},
	}
}

func applyDefaults(rec *Record) {
	if rec.WindowSeconds <= 0 {
		rec.WindowSeconds = DefaultWindowSeconds
	}
	if rec.SMTP.Port == 0 {
		rec.SMTP.Port = 587
	}
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.rec
	rec.Contacts = append([]Contact(nil), s.rec.Contacts...)
	return rec
}

// Contacts returns a copy of the recipient list.
func (s *Store) Contacts() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Contact(nil), s.rec.Contacts...)
}

// Window returns the configured confirmation window.
func (s *Store) Window() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.rec.WindowSeconds) * time.Second
}

// UseLocation reports whether escalation should resolve a location.
func (s *Store) UseLocation() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.UseLocation
}

// SMTP returns the outbound mail credentials.
func (s *Store) SMTP() SMTPConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.SMTP
}

// Add validates and appends a recipient, persisting the record.
func (s *Store) Add(c Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" {
		return xerrors.New("contact name must not be empty")
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("invalid contact email %q", c.Email)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]Contact(nil), s.rec.Contacts...), c)
	rec := s.rec
	rec.Contacts = next
	if err := s.persist(rec); err != nil {
		return err
	}
	s.rec = rec
	return nil
}

// Update replaces the non-contact settings, persisting the record. The
// recipient list is kept as-is.
func (s *Store) Update(smtp SMTPConfig, windowSeconds int, useLocation bool) error {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.rec
	rec.SMTP = smtp
	rec.WindowSeconds = windowSeconds
	rec.UseLocation = useLocation
	if err := s.persist(rec); err != nil {
		return err
	}
	s.rec = rec
	return nil
}

// persist writes the record atomically via a temp file and rename. Callers
// hold s.mu.
func (s *Store) persist(rec Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".beacon-settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best effort cleanup

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
