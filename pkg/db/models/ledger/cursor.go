package ledger

import "time"

// CursorKey identifies one sync position: how far ingestion has progressed
// for a single (node, scope, source, stream, source-ref) combination.
type CursorKey struct {
	NodeID    string `json:"nodeId"`
	ScopeID   string `json:"scopeId"`
	Source    string `json:"source"`
	Stream    string `json:"stream"`
	SourceRef string `json:"sourceRef"`
}

// Cursor is a stored sync position. Value is opaque to the store; the current
// source adapters emit RFC3339 timestamps.
type Cursor struct {
	Key       CursorKey `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
