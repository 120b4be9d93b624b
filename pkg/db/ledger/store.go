package ledger

import (
	"context"
	"time"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
)

// Store describes the ledger database operations required by the collection
// activities and the ops server.
type Store interface {
	// --- Init

	InitializeDB(ctx context.Context) error

	// --- Epochs

	// GetEpochByWindow returns the epoch for the exact window, or nil if absent.
	GetEpochByWindow(ctx context.Context, nodeID, scopeID string, start, end time.Time) (*ledgermodels.Epoch, error)
	// CreateEpoch inserts a new epoch row. A concurrent creator for the same
	// window surfaces as a unique-violation error (see IsUniqueViolation).
	CreateEpoch(ctx context.Context, epoch *ledgermodels.Epoch) (*ledgermodels.Epoch, error)
	// GetEpoch returns the epoch by id, or nil if absent.
	GetEpoch(ctx context.Context, id int64) (*ledgermodels.Epoch, error)
	GetEpochSummary(ctx context.Context, id int64) (*ledgermodels.EpochSummary, error)

	// --- Cursors

	// GetCursor returns the stored cursor, or nil if the key has never been synced.
	GetCursor(ctx context.Context, key ledgermodels.CursorKey) (*ledgermodels.Cursor, error)
	UpsertCursor(ctx context.Context, key ledgermodels.CursorKey, value string) error

	// --- Activity events

	// InsertActivityEvents persists events idempotently: duplicate ids are skipped.
	InsertActivityEvents(ctx context.Context, events []*ledgermodels.ActivityEvent) error
	// GetUncuratedEvents returns events in the window lacking a curation row or
	// holding an unresolved one, each flagged with whether a row already exists.
	GetUncuratedEvents(ctx context.Context, nodeID string, epochID int64, start, end time.Time) ([]ledgermodels.UncuratedEvent, error)

	// --- Curations

	// InsertCurationsDoNothing inserts curation rows, silently skipping
	// (epoch, event) pairs that already have one.
	InsertCurationsDoNothing(ctx context.Context, rows []*ledgermodels.Curation) error
	// UpdateCurationUserID sets user_id on an existing row. No other column is
	// ever updated by the pipeline; admin-owned fields stay untouched.
	UpdateCurationUserID(ctx context.Context, epochID int64, eventID, userID string) error

	// --- Identity resolution

	// ResolveIdentities maps external platform user ids to internal user ids
	// for one source. Unknown ids are simply absent from the result.
	ResolveIdentities(ctx context.Context, source string, externalIDs []string) (map[string]string, error)

	// --- Meta

	Health(ctx context.Context) error
	Close()
}
