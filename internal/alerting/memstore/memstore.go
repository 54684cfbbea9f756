// Package memstore provides an in-memory implementation of alerting.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/beacon/internal/alerting"
)

// Store holds alerts in memory. Suitable for dev/testing and single-node
// deployments; the mutex makes Transition the required atomic
// check-and-set.
type Store struct {
	mu      sync.RWMutex
	active  map[string]*alerting.Alert // alert ID -> live alert
	history []alerting.Alert           // append-only, terminal alerts in settle order
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		active: make(map[string]*alerting.Alert),
	}
}

// Insert stores a copy of the alert in the active set.
func (s *Store) Insert(_ context.Context, a *alerting.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.active[a.ID] = &cp
	return nil
}

// Get retrieves an alert by ID from the active set or history. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*alerting.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.active[id]; ok {
		cp := *a
		return &cp, true, nil
	}
	for i := range s.history {
		if s.history[i].ID == id {
			cp := s.history[i]
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

// Transition implements the atomic check-and-set described on
// alerting.Store. The whole check-apply-move sequence runs under one lock,
// so concurrent cancel/confirm/timeout callers linearize here.
func (s *Store) Transition(_ context.Context, id string, from, to alerting.Status, at time.Time, cause string) (*alerting.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.active[id]
	if !ok {
		// Terminal alerts live in history; report their settled state so
		// callers can distinguish "already resolved" from "unknown".
		for i := range s.history {
			if s.history[i].ID == id {
				cp := s.history[i]
				return &cp, false, nil
			}
		}
		return nil, false, nil
	}

	if a.Status != from {
		cp := *a
		return &cp, false, nil
	}

	a.Status = to
	switch to {
	case alerting.StatusCancelled:
		a.Cancelled = true
	case alerting.StatusConfirmed:
		a.ConfirmedAt = at
	case alerting.StatusResponded:
		a.RespondedAt = at
	case alerting.StatusError:
		a.Error = cause
	}

	if to.Terminal() {
		s.history = append(s.history, *a)
		delete(s.active, id)
	}

	cp := *a
	return &cp, true, nil
}

// Active lists non-terminal alerts, most recent first.
func (s *Store) Active(_ context.Context) ([]alerting.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]alerting.Alert, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// History returns the most recent terminal alerts up to limit, plus the
// total history size.
func (s *Store) History(_ context.Context, limit int) ([]alerting.Alert, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.history)
	n := total
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]alerting.Alert, 0, n)
	for i := total - 1; i >= total-n; i-- {
		out = append(out, s.history[i])
	}
	return out, total, nil
}
