package detect

import "context"

// Scorer wraps one detection source. Implementations must never fail a
// fusion call: a scorer that cannot form an opinion returns a Neutral
// verdict instead of an error.
type Scorer interface {
	Name() string

	// Available reports whether the source loaded successfully at startup.
	// Unavailable scorers are skipped entirely; they do not vote.
	Available() bool

	Score(ctx context.Context, s Sample) SignalVerdict
}

// Registry holds emotion-voting scorers in priority order. Registration
// order is the deterministic tie-break order for the fused emotion vote,
// so main registers the most trusted classifier first.
type Registry struct {
	scorers []Scorer
}

// NewRegistry creates an empty scorer registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a scorer at the lowest remaining priority.
func (r *Registry) Register(s Scorer) {
	r.scorers = append(r.scorers, s)
}

// Scorers returns the registered scorers in priority order.
func (r *Registry) Scorers() []Scorer {
	return r.scorers
}
