package ledger

import "time"

// ActivityEvent is a single externally-sourced unit of contributor activity.
// ID is a stable identity derived from (source, event type, natural key) and
// is the deduplication key: inserts with a known ID are silently skipped.
type ActivityEvent struct {
	ID              string         `json:"id"`
	NodeID          string         `json:"nodeId"`
	ScopeID         string         `json:"scopeId"`
	Source          string         `json:"source"`
	EventType       string         `json:"eventType"`
	ExternalUserID  string         `json:"externalUserId"`
	ExternalLogin   string         `json:"externalLogin,omitempty"`
	ArtifactURL     string         `json:"artifactUrl,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	PayloadHash     string         `json:"payloadHash"`
	Producer        string         `json:"producer"`
	ProducerVersion string         `json:"producerVersion"`
	EventTime       time.Time      `json:"eventTime"`
	RetrievedAt     time.Time      `json:"retrievedAt"`
}

// UncuratedEvent pairs an event inside an epoch window with whether a
// curation row already exists for it. Events come back here either because
// they have no curation row yet or because the existing row is unresolved.
type UncuratedEvent struct {
	Event       *ActivityEvent `json:"event"`
	HasCuration bool           `json:"hasCuration"`
}
