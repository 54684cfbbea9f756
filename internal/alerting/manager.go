package alerting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/beacon/internal/detect"
)

// Escalator runs the real-world emergency response for a confirmed alert.
type Escalator interface {
	Escalate(ctx context.Context, a *Alert) error
}

// Outcome is the structured result of a cancel or confirm call. NotFound
// is a transport hint, not part of the response body; HTTP status routing
// must key off it rather than the display message.
type Outcome struct {
	OK       bool   `json:"success"`
	Message  string `json:"message"`
	NotFound bool   `json:"-"`
}

// Manager owns the alert lifecycle: it creates alerts from detection
// results, runs the confirmation-window countdown, resolves the
// cancel/confirm/timeout race through the store's atomic transition, and
// dispatches escalation.
type Manager struct {
	store     Store
	escalator Escalator
	window    func() time.Duration
	logger    log.Logger
	metrics   *Metrics

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewManager creates a lifecycle manager. window is called per alert so a
// live config record can adjust the confirmation window without a restart.
func NewManager(store Store, escalator Escalator, window func() time.Duration, logger log.Logger, metrics *Metrics) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		store:     store,
		escalator: escalator,
		window:    window,
		logger:    logger,
		metrics:   metrics,
		timers:    make(map[string]*time.Timer),
	}
}

// Trigger creates a pending alert for a positive detection and starts its
// confirmation-window countdown.
func (m *Manager) Trigger(ctx context.Context, res detect.DetectionResult) (*Alert, error) {
	a := &Alert{
		ID:         ulid.Make().String(),
		CreatedAt:  time.Now(),
		Source:     sourceFromResult(res),
		Emotion:    res.Emotion,
		Confidence: res.Confidence,
		Message:    "Distress detected: " + res.Transcript,
		Status:     StatusPendingConfirmation,
	}

	if err := m.store.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	window := m.window()
	m.mu.Lock()
	m.timers[a.ID] = time.AfterFunc(window, func() { m.expire(a.ID) })
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.AlertsTotal.WithLabelValues(triggerKind(res)).Inc()
		m.metrics.ActiveAlerts.Inc()
	}

	m.logger.Info(ctx, "alert created",
		"alert_id", a.ID,
		"source", a.Source,
		"confidence", a.Confidence,
		"window", window,
	)

	cp := *a
	return &cp, nil
}

// Cancel marks a pending alert as a false positive. Cancelling an unknown
// or already-settled alert is reported in the outcome, never as an error.
func (m *Manager) Cancel(ctx context.Context, id string) (Outcome, error) {
	a, swapped, err := m.store.Transition(ctx, id, StatusPendingConfirmation, StatusCancelled, time.Now(), "")
	if err != nil {
		return Outcome{}, fmt.Errorf("cancel %s: %w", id, err)
	}
	if a == nil {
		return Outcome{NotFound: true, Message: "alert not found"}, nil
	}
	if !swapped {
		return Outcome{Message: "alert already resolved"}, nil
	}

	m.stopTimer(id)
	m.settleMetrics(a)

	m.logger.Info(ctx, "alert cancelled", "alert_id", id)
	return Outcome{OK: true, Message: "alert cancelled"}, nil
}

// Confirm moves a pending alert to confirmed and dispatches escalation on a
// detached goroutine. Confirming an alert that is already confirmed or
// responded succeeds without re-escalating.
func (m *Manager) Confirm(ctx context.Context, id string) (Outcome, error) {
	a, swapped, err := m.store.Transition(ctx, id, StatusPendingConfirmation, StatusConfirmed, time.Now(), "")
	if err != nil {
		return Outcome{}, fmt.Errorf("confirm %s: %w", id, err)
	}
	if a == nil {
		return Outcome{NotFound: true, Message: "alert not found"}, nil
	}
	if !swapped {
		switch a.Status {
		case StatusConfirmed, StatusResponded:
			return Outcome{OK: true, Message: "alert already confirmed"}, nil
		case StatusCancelled:
			return Outcome{Message: "alert already cancelled"}, nil
		default:
			return Outcome{Message: "alert already resolved"}, nil
		}
	}

	m.stopTimer(id)
	m.logger.Info(ctx, "alert confirmed", "alert_id", id)

	// Escalation must not block the caller, and must survive request
	// cancellation once the alert is confirmed.
	go m.escalate(context.WithoutCancel(ctx), a)

	return Outcome{OK: true, Message: "emergency response triggered"}, nil
}

// Active lists alerts still in the confirmation or escalation flow.
func (m *Manager) Active(ctx context.Context) ([]Alert, error) {
	return m.store.Active(ctx)
}

// History returns settled alerts, most recent first, plus the total count.
func (m *Manager) History(ctx context.Context, limit int) ([]Alert, int, error) {
	return m.store.History(ctx, limit)
}

// Shutdown stops all pending countdowns. Alerts stay pending; the atomic
// store transition remains the source of truth if a timer already fired.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

// expire is the confirmation-window timeout path. It behaves exactly like
// Confirm; if a cancel or confirm already won the race the transition
// reports swapped=false and this is a no-op.
func (m *Manager) expire(id string) {
	ctx := context.Background()

	m.stopTimer(id)

	a, swapped, err := m.store.Transition(ctx, id, StatusPendingConfirmation, StatusConfirmed, time.Now(), "")
	if err != nil {
		m.logger.Error(ctx, err, "auto-confirm transition failed", "alert_id", id)
		return
	}
	if a == nil || !swapped {
		return
	}

	m.logger.Info(ctx, "confirmation window expired, auto-confirming", "alert_id", id)
	m.escalate(ctx, a)
}

// escalate runs the coordinator and records the terminal status. The alert
// lands in history either way; escalation failures are never dropped.
func (m *Manager) escalate(ctx context.Context, a *Alert) {
	L := m.logger.With("alert_id", a.ID, "source", a.Source)

	start := time.Now()
	escErr := m.escalator.Escalate(ctx, a)

	to := StatusResponded
	cause := ""
	if escErr != nil {
		to = StatusError
		cause = escErr.Error()
		L.Error(ctx, escErr, "escalation failed")
	}

	final, swapped, err := m.store.Transition(ctx, a.ID, StatusConfirmed, to, time.Now(), cause)
	if err != nil {
		L.Error(ctx, err, "failed to record escalation outcome")
		return
	}
	if !swapped {
		// Should be unreachable: only this goroutine settles a confirmed
		// alert. Log it rather than fight the store.
		L.Warn(ctx, "escalation outcome discarded, alert no longer confirmed")
		return
	}

	m.settleMetrics(final)
	if m.metrics != nil {
		m.metrics.EscalationDuration.Observe(time.Since(start).Seconds())
	}

	L.Info(ctx, "escalation complete", "status", final.Status, "duration", time.Since(start).Seconds())
}

func (m *Manager) stopTimer(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) settleMetrics(a *Alert) {
	if m.metrics == nil {
		return
	}
	m.metrics.ResolutionsTotal.WithLabelValues(string(a.Status)).Inc()
	m.metrics.ActiveAlerts.Dec()

	settled := a.ConfirmedAt
	if settled.IsZero() {
		settled = time.Now()
	}
	m.metrics.PendingDuration.Observe(settled.Sub(a.CreatedAt).Seconds())
}

// sourceFromResult names the deciding detection source the way operators
// see it in notifications: the bare keyword for keyword hits, the emotion
// label otherwise.
func sourceFromResult(res detect.DetectionResult) string {
	if strings.HasPrefix(res.Reason, "emotion") {
		return fmt.Sprintf("emotion_detection (%s)", res.Emotion)
	}
	term := strings.TrimPrefix(res.Reason, "keyword: ")
	return strings.Trim(term, "'")
}

func triggerKind(res detect.DetectionResult) string {
	if strings.HasPrefix(res.Reason, "keyword") {
		return "keyword"
	}
	return "emotion"
}
