package alerting

import (
	"context"
	"time"
)

// Store is the persistence boundary for alerts. Implementations must make
// Transition an atomic check-and-set: it is the single serialization point
// for the cancel/confirm/timer race, so two callers can never both move the
// same alert out of pending_confirmation.
type Store interface {
	// Insert adds a new alert to the active set.
	Insert(ctx context.Context, a *Alert) error

	// Get retrieves an alert by ID from the active set or history.
	Get(ctx context.Context, id string) (*Alert, bool, error)

	// Transition atomically moves the alert from one status to another.
	// It returns the alert after the attempt, whether the swap happened,
	// and any storage error. A nil alert means the ID is unknown; a
	// returned alert with swapped=false carries the already-settled state.
	//
	// Side effects applied with the swap: StatusCancelled sets Cancelled,
	// StatusConfirmed sets ConfirmedAt=at, StatusResponded sets
	// RespondedAt=at, StatusError records cause. A terminal target status
	// also copies the alert to history and removes it from the active set.
	Transition(ctx context.Context, id string, from, to Status, at time.Time, cause string) (*Alert, bool, error)

	// Active lists alerts that have not reached a terminal status,
	// most recent first.
	Active(ctx context.Context) ([]Alert, error)

	// History returns the most recent terminal alerts up to limit, plus
	// the total number of history entries.
	History(ctx context.Context, limit int) ([]Alert, int, error)
}
