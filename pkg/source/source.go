package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
)

// CollectRequest asks an adapter for new activity in one window.
type CollectRequest struct {
	// SourceRef identifies the upstream container to scan, e.g. "org/repo".
	SourceRef string
	// Streams are the activity kinds to collect, e.g. "pull_requests".
	Streams []string
	// Cursor is the prior sync position, nil on the first run for this key.
	Cursor *string
	// Window bounds collection: [WindowStart, WindowEnd).
	WindowStart time.Time
	WindowEnd   time.Time
}

// NextCursor is the position an adapter advanced to after a collection call.
// The adapter advances it even when zero events were returned, reflecting the
// window that was scanned.
type NextCursor struct {
	StreamID string `json:"streamId"`
	Value    string `json:"value"`
}

// CollectResult carries the adapter's events and updated position.
type CollectResult struct {
	Events     []*ledgermodels.ActivityEvent
	NextCursor NextCursor
}

// Adapter is a connector to one external activity system.
type Adapter interface {
	// Name is the source key the adapter registers under, e.g. "github".
	Name() string
	// Version identifies the adapter build for provenance stamping on events.
	Version() string
	Collect(ctx context.Context, req CollectRequest) (CollectResult, error)
}

// EventID derives the stable deduplication identity for an event from its
// source, type and natural key. The same upstream artifact always hashes to
// the same id, which is what makes event insertion idempotent across runs.
func EventID(source, eventType, naturalKey string) string {
	sum := sha256.Sum256([]byte(source + "|" + eventType + "|" + naturalKey))
	return hex.EncodeToString(sum[:])
}

// PayloadHash fingerprints the raw upstream payload an event was built from.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
