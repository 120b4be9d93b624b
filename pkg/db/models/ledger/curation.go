package ledger

import "time"

// Curation is the accounting decision for one (epoch, event) pair.
//
// The pipeline writes UserID at insert time and may update it later when a
// previously unknown identity becomes resolvable. Included, IncludedOverride,
// WeightOverrideMilli and Note are owned by the admin surface and are never
// touched by the pipeline after insert.
type Curation struct {
	NodeID              string    `json:"nodeId"`
	EpochID             int64     `json:"epochId"`
	EventID             string    `json:"eventId"`
	UserID              *string   `json:"userId"` // nil while unresolved
	Included            bool      `json:"included"`
	IncludedOverride    *bool     `json:"includedOverride,omitempty"`
	WeightOverrideMilli *int64    `json:"weightOverrideMilli,omitempty"`
	Note                *string   `json:"note,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
