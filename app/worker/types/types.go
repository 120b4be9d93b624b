package types

import (
	"time"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
)

// ProducerVersionUnknown is stamped when no adapter is registered for a
// source and the collection soft-skips.
const ProducerVersionUnknown = "unknown"

// SourceSpec configures collection for one source.
type SourceSpec struct {
	// SourceRefs are upstream containers to scan, e.g. "org/repo" for github.
	SourceRefs []string `json:"sourceRefs"`
	// Streams are the activity kinds to collect from each ref.
	Streams []string `json:"streams"`
}

// CollectionInput is the versioned configuration the scheduler attaches to
// the collection workflow trigger.
type CollectionInput struct {
	Version         int                   `json:"version"`
	NodeID          string                `json:"nodeId"`
	ScopeID         string                `json:"scopeId"`
	ScopeKey        string                `json:"scopeKey"`
	EpochLengthDays int                   `json:"epochLengthDays"`
	Sources         map[string]SourceSpec `json:"sources"`
	// TriggeredAt is the scheduler's fire time. Zero means "use workflow time".
	TriggeredAt time.Time `json:"triggeredAt,omitempty"`
}

// CollectionResult summarizes one workflow run.
type CollectionResult struct {
	EpochID         int64     `json:"epochId"`
	WindowStart     time.Time `json:"windowStart"`
	WindowEnd       time.Time `json:"windowEnd"`
	Skipped         bool      `json:"skipped"`
	SkipReason      string    `json:"skipReason,omitempty"`
	EventsCollected int       `json:"eventsCollected"`
	Curation        CurateOutput
}

// EnsureEpochInput asks for the epoch covering one exact window.
type EnsureEpochInput struct {
	NodeID      string                    `json:"nodeId"`
	ScopeID     string                    `json:"scopeId"`
	PeriodStart time.Time                 `json:"periodStart"`
	PeriodEnd   time.Time                 `json:"periodEnd"`
	Weights     ledgermodels.WeightConfig `json:"weights"`
}

// EnsureEpochOutput always carries the authoritative pinned weight
// configuration, which may differ from the caller's input.
type EnsureEpochOutput struct {
	EpochID int64                     `json:"epochId"`
	Status  string                    `json:"status"`
	Weights ledgermodels.WeightConfig `json:"weights"`
	IsNew   bool                      `json:"isNew"`
}

// CursorKeyInput identifies one sync position.
type CursorKeyInput struct {
	NodeID    string `json:"nodeId"`
	ScopeID   string `json:"scopeId"`
	Source    string `json:"source"`
	Stream    string `json:"stream"`
	SourceRef string `json:"sourceRef"`
}

// LoadCursorOutput carries the stored value, nil when never synced.
type LoadCursorOutput struct {
	Value *string `json:"value"`
}

// SaveCursorInput writes a cursor value; the activity enforces monotonicity.
type SaveCursorInput struct {
	Key   CursorKeyInput `json:"key"`
	Value string         `json:"value"`
}

// SaveCursorOutput reports the value actually stored after the monotonic merge.
type SaveCursorOutput struct {
	EffectiveValue string `json:"effectiveValue"`
}

// CollectInput delegates one (source, ref, stream-set) scan to its adapter.
type CollectInput struct {
	NodeID      string    `json:"nodeId"`
	ScopeID     string    `json:"scopeId"`
	Source      string    `json:"source"`
	SourceRef   string    `json:"sourceRef"`
	Streams     []string  `json:"streams"`
	CursorValue *string   `json:"cursorValue"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}

// NextCursor is the position the adapter advanced to.
type NextCursor struct {
	StreamID string `json:"streamId"`
	Value    string `json:"value"`
}

// CollectOutput carries collected events plus provenance for insertion.
type CollectOutput struct {
	Events          []*ledgermodels.ActivityEvent `json:"events"`
	NextCursor      NextCursor                    `json:"nextCursor"`
	ProducerVersion string                        `json:"producerVersion"`
	DurationMs      float64                       `json:"durationMs"`
}

// InsertEventsInput persists a collected batch under node/scope identity.
type InsertEventsInput struct {
	NodeID          string                        `json:"nodeId"`
	ScopeID         string                        `json:"scopeId"`
	ProducerVersion string                        `json:"producerVersion"`
	Events          []*ledgermodels.ActivityEvent `json:"events"`
}

// InsertEventsOutput reports how many events were handed to the store.
type InsertEventsOutput struct {
	NumEvents int `json:"numEvents"`
}

// CurateInput triggers curation for one epoch.
type CurateInput struct {
	EpochID int64 `json:"epochId"`
}

// CurateOutput reports the curation bookkeeping of one run.
type CurateOutput struct {
	Processed  int     `json:"processed"`
	Created    int     `json:"created"`
	Resolved   int     `json:"resolved"`
	Unresolved int     `json:"unresolved"`
	DurationMs float64 `json:"durationMs"`
}
