package ledger

import "time"

// Epoch statuses. An epoch is created open and closed by an external
// finalization process; the collection pipeline never transitions status.
const (
	EpochStatusOpen   = "open"
	EpochStatusClosed = "closed"
)

// WeightConfig maps an event-type key (e.g. "github.pull_request_merged") to
// its integer contribution weight. It is pinned on the epoch row at creation
// and never mutated afterwards.
type WeightConfig map[string]int64

// Epoch is a time-windowed accounting period for a (node, scope) pair.
// Exactly one row may exist per (node, scope, period_start, period_end),
// enforced by a unique constraint.
type Epoch struct {
	ID          int64        `json:"id"`
	NodeID      string       `json:"nodeId"`
	ScopeID     string       `json:"scopeId"`
	PeriodStart time.Time    `json:"periodStart"` // inclusive
	PeriodEnd   time.Time    `json:"periodEnd"`   // exclusive
	Status      string       `json:"status"`
	Weights     WeightConfig `json:"weights"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// EpochSummary is the operator-facing view of an epoch run: the epoch row
// plus curation totals.
type EpochSummary struct {
	Epoch          *Epoch `json:"epoch"`
	TotalCurations int64  `json:"totalCurations"`
	Resolved       int64  `json:"resolved"`
	Unresolved     int64  `json:"unresolved"`
}
