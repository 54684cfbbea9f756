// Package pgstore provides a PostgreSQL implementation of alerting.Store.
// The cancel/confirm/timeout race is linearized by a conditional UPDATE:
// only the statement that matches the expected status swaps the row.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/beacon/internal/alerting"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/alerting/pgstore")

//go:embed schema.sql
var schema string

// Store persists alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const alertColumns = `id, created_at, source, emotion, confidence, message,
	status, cancelled, confirmed_at, responded_at, error`

// Insert adds a new alert to the active set.
func (s *Store) Insert(ctx context.Context, a *alerting.Alert) error {
	ctx, span := tracer.Start(ctx, "pgstore.Insert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	query := `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.pool.Exec(ctx, query,
		a.ID, a.CreatedAt, a.Source, a.Emotion, a.Confidence, a.Message,
		string(a.Status), a.Cancelled, nullTime(a.ConfirmedAt), nullTime(a.RespondedAt), a.Error,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Get retrieves an alert by ID, checking the active set first, then history.
func (s *Store) Get(ctx context.Context, id string) (*alerting.Alert, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	a, err := scanAlertRow(s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if a != nil {
		return a, true, nil
	}

	a, err = scanAlertRow(s.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alert_history WHERE id = $1 ORDER BY seq DESC LIMIT 1`, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if a == nil {
		return nil, false, nil
	}
	return a, true, nil
}

// Transition implements the atomic check-and-set described on
// alerting.Store. The conditional UPDATE and the history move run in one
// transaction.
func (s *Store) Transition(ctx context.Context, id string, from, to alerting.Status, at time.Time, cause string) (*alerting.Alert, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Transition", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
		attribute.String("beacon.alert.to", string(to)),
	))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	query := `UPDATE alerts SET
			status = $3,
			cancelled = cancelled OR $4,
			confirmed_at = COALESCE(confirmed_at, $5),
			responded_at = COALESCE(responded_at, $6),
			error = CASE WHEN $7 <> '' THEN $7 ELSE error END
		WHERE id = $1 AND status = $2
		RETURNING ` + alertColumns
	a, err := scanAlertRow(tx.QueryRow(ctx, query,
		id, string(from), string(to),
		to == alerting.StatusCancelled,
		confirmAt(to, at), respondAt(to, at), cause,
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}

	if a == nil {
		// No swap. Report the settled state, if the alert exists at all.
		settled, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		return settled, false, nil
	}

	if to.Terminal() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO alert_history (`+alertColumns+`)
			 SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, false, fmt.Errorf("copy to history: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, false, fmt.Errorf("remove from active: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return a, true, nil
}

// Active lists non-terminal alerts, most recent first.
func (s *Store) Active(ctx context.Context) ([]alerting.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Active", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query active: %w", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// History returns the most recent terminal alerts up to limit, plus the
// total history size.
func (s *Store) History(ctx context.Context, limit int) ([]alerting.Alert, int, error) {
	ctx, span := tracer.Start(ctx, "pgstore.History", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alert_history`).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	query := `SELECT ` + alertColumns + ` FROM alert_history ORDER BY seq DESC`
	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = s.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, query)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	items, err := collectAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func collectAlerts(rows pgx.Rows) ([]alerting.Alert, error) {
	var out []alerting.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

// scanAlertRow scans a single row into an Alert. Returns (nil, nil) when no
// row is found.
func scanAlertRow(row pgx.Row) (*alerting.Alert, error) {
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanAlert(row pgx.Row) (*alerting.Alert, error) {
	var (
		a           alerting.Alert
		status      string
		confirmedAt *time.Time
		respondedAt *time.Time
	)
	err := row.Scan(
		&a.ID, &a.CreatedAt, &a.Source, &a.Emotion, &a.Confidence, &a.Message,
		&status, &a.Cancelled, &confirmedAt, &respondedAt, &a.Error,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	a.Status = alerting.Status(status)
	if confirmedAt != nil {
		a.ConfirmedAt = *confirmedAt
	}
	if respondedAt != nil {
		a.RespondedAt = *respondedAt
	}
	return &a, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func confirmAt(to alerting.Status, at time.Time) *time.Time {
	if to == alerting.StatusConfirmed {
		return &at
	}
	return nil
}

func respondAt(to alerting.Status, at time.Time) *time.Time {
	if to == alerting.StatusResponded {
		return &at
	}
	return nil
}
