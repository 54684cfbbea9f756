package alerting

import "time"

// Status tracks where an alert is in its lifecycle.
type Status string

const (
	// StatusPendingConfirmation means created, waiting for a human to
	// cancel or confirm within the confirmation window.
	StatusPendingConfirmation Status = "pending_confirmation"

	// StatusCancelled means a human cancelled the alert in time. Terminal.
	StatusCancelled Status = "cancelled"

	// StatusConfirmed means a human confirmed, or the window expired;
	// escalation is in flight.
	StatusConfirmed Status = "confirmed"

	// StatusResponded means escalation completed. Terminal.
	StatusResponded Status = "responded"

	// StatusError means escalation hit an internal fault. Terminal.
	StatusError Status = "error"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusResponded || s == StatusError
}

// Alert is one triggered distress detection moving through the lifecycle.
// Once Status leaves pending_confirmation it never returns there; the
// store's Transition is the only way to change Status.
type Alert struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	Emotion     string    `json:"emotion"`
	Confidence  float64   `json:"confidence"`
	Message     string    `json:"message"`
	Status      Status    `json:"status"`
	Cancelled   bool      `json:"cancelled"`
	ConfirmedAt time.Time `json:"confirmed_at,omitzero"`
	RespondedAt time.Time `json:"responded_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}
