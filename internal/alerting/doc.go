// Package alerting provides the business boundary for Beacon's alert
// lifecycle. It defines the Manager (confirmation window, cancel/confirm,
// escalation dispatch), the Store interface (atomic status transitions,
// active set, history log), and the domain models.
package alerting
