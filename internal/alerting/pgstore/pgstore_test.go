package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/alerting/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("BEACON_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BEACON_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func newAlert(id string) *alerting.Alert {
	return &alerting.Alert{
		ID:         id,
		CreatedAt:  time.Now().Truncate(time.Microsecond).UTC(),
		Source:     "help",
		Emotion:    "neutral",
		Confidence: 0.9,
		Message:    "Distress detected: help me please",
		Status:     alerting.StatusPendingConfirmation,
	}
}

func TestInsertAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id := fmt.Sprintf("test-insert-%d", time.Now().UnixNano())
	if err := s.Insert(ctx, newAlert(id)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}
	if got.Status != alerting.StatusPendingConfirmation {
		t.Errorf("status = %q, want pending_confirmation", got.Status)
	}
	if got.Source != "help" {
		t.Errorf("source = %q, want help", got.Source)
	}
}

func TestTransitionRace(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id := fmt.Sprintf("test-race-%d", time.Now().UnixNano())
	if err := s.Insert(ctx, newAlert(id)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Two competing transitions; exactly one may swap.
	_, cancelSwapped, err := s.Transition(ctx, id, alerting.StatusPendingConfirmation, alerting.StatusCancelled, time.Now(), "")
	if err != nil {
		t.Fatalf("Transition cancel: %v", err)
	}
	_, confirmSwapped, err := s.Transition(ctx, id, alerting.StatusPendingConfirmation, alerting.StatusConfirmed, time.Now(), "")
	if err != nil {
		t.Fatalf("Transition confirm: %v", err)
	}

	if !cancelSwapped || confirmSwapped {
		t.Errorf("swaps = cancel:%v confirm:%v, want cancel to win and confirm to observe settled state", cancelSwapped, confirmSwapped)
	}

	got, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Get after terminal: ok=%v err=%v", ok, err)
	}
	if got.Status != alerting.StatusCancelled || !got.Cancelled {
		t.Errorf("final = %+v, want cancelled", got)
	}
}

func TestHistoryPagination(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Now().UnixNano()
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("test-hist-%d-%d", base, i)
		if err := s.Insert(ctx, newAlert(id)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if _, swapped, err := s.Transition(ctx, id, alerting.StatusPendingConfirmation, alerting.StatusCancelled, time.Now(), ""); err != nil || !swapped {
			t.Fatalf("Transition: swapped=%v err=%v", swapped, err)
		}
	}

	page, total, err := s.History(ctx, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("page = %d entries, want 2", len(page))
	}
	if total < 3 {
		t.Errorf("total = %d, want >= 3", total)
	}
	// Most recent first.
	if page[0].ID != fmt.Sprintf("test-hist-%d-2", base) {
		t.Errorf("page[0] = %q, want the most recent entry", page[0].ID)
	}
}
