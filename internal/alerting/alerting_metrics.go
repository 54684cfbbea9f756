package alerting

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the alerting subsystem.
type Metrics struct {
	AlertsTotal        *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
	ActiveAlerts       prometheus.Gauge
	PendingDuration    prometheus.Histogram
	EscalationDuration prometheus.Histogram
	NotifySendsTotal   *prometheus.CounterVec
}

// NewMetrics registers and returns alerting metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_alerts_total",
			Help: "Total alerts created, by deciding detection source.",
		}, []string{"trigger"}),
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_alert_resolutions_total",
			Help: "Total alerts reaching a terminal status.",
		}, []string{"status"}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_active_alerts",
			Help: "Alerts currently in the active set.",
		}),
		PendingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_alert_pending_duration_seconds",
			Help:    "Time alerts spend in pending_confirmation.",
			Buckets: prometheus.LinearBuckets(1, 2, 10), // 1s .. 19s
		}),
		EscalationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_escalation_duration_seconds",
			Help:    "Duration of escalation runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		NotifySendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_notify_sends_total",
			Help: "Contact notification attempts by channel and status.",
		}, []string{"channel", "status"}),
	}

	reg.MustRegister(
		m.AlertsTotal,
		m.ResolutionsTotal,
		m.ActiveAlerts,
		m.PendingDuration,
		m.EscalationDuration,
		m.NotifySendsTotal,
	)

	return m
}
