package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeStore is an in-memory ledger store mirroring the Postgres semantics the
// activities rely on: unique-violation on duplicate windows, insert-if-absent
// curations and single-column user id updates.
type fakeStore struct {
	epochs    map[int64]*ledgermodels.Epoch
	cursors   map[ledgermodels.CursorKey]string
	events    map[string]*ledgermodels.ActivityEvent
	curations map[string]*ledgermodels.Curation
	identity  map[string]map[string]string

	nextEpochID int64

	// conflictOnCreate makes the next CreateEpoch fail with a unique
	// violation, simulating a concurrent creator winning the race.
	conflictOnCreate bool
	// missWindowOnce makes the next GetEpochByWindow miss, simulating a row
	// that lands between the existence check and the insert.
	missWindowOnce bool

	createEpochCalls  int
	upsertCursorCalls int
	insertEventCalls  int
	updateUserIDCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		epochs:      make(map[int64]*ledgermodels.Epoch),
		cursors:     make(map[ledgermodels.CursorKey]string),
		events:      make(map[string]*ledgermodels.ActivityEvent),
		curations:   make(map[string]*ledgermodels.Curation),
		identity:    make(map[string]map[string]string),
		nextEpochID: 1,
	}
}

func curationKey(epochID int64, eventID string) string {
	return fmt.Sprintf("%d/%s", epochID, eventID)
}

func (f *fakeStore) InitializeDB(ctx context.Context) error { return nil }

func (f *fakeStore) GetEpochByWindow(ctx context.Context, nodeID, scopeID string, start, end time.Time) (*ledgermodels.Epoch, error) {
	if f.missWindowOnce {
		f.missWindowOnce = false
		return nil, nil
	}
	for _, e := range f.epochs {
		if e.NodeID == nodeID && e.ScopeID == scopeID && e.PeriodStart.Equal(start) && e.PeriodEnd.Equal(end) {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateEpoch(ctx context.Context, epoch *ledgermodels.Epoch) (*ledgermodels.Epoch, error) {
	f.createEpochCalls++
	if f.conflictOnCreate {
		f.conflictOnCreate = false
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "epochs_window_key"}
	}
	stored := *epoch
	stored.ID = f.nextEpochID
	stored.CreatedAt = time.Now()
	f.nextEpochID++
	f.epochs[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeStore) GetEpoch(ctx context.Context, id int64) (*ledgermodels.Epoch, error) {
	return f.epochs[id], nil
}

func (f *fakeStore) GetEpochSummary(ctx context.Context, id int64) (*ledgermodels.EpochSummary, error) {
	e := f.epochs[id]
	if e == nil {
		return nil, nil
	}
	clone := *e
	return &ledgermodels.EpochSummary{Epoch: &clone}, nil
}

func (f *fakeStore) GetCursor(ctx context.Context, key ledgermodels.CursorKey) (*ledgermodels.Cursor, error) {
	value, ok := f.cursors[key]
	if !ok {
		return nil, nil
	}
	return &ledgermodels.Cursor{Key: key, Value: value}, nil
}

func (f *fakeStore) UpsertCursor(ctx context.Context, key ledgermodels.CursorKey, value string) error {
	f.upsertCursorCalls++
	f.cursors[key] = value
	return nil
}

func (f *fakeStore) InsertActivityEvents(ctx context.Context, events []*ledgermodels.ActivityEvent) error {
	f.insertEventCalls++
	for _, e := range events {
		if _, exists := f.events[e.ID]; exists {
			continue
		}
		stored := *e
		f.events[e.ID] = &stored
	}
	return nil
}

func (f *fakeStore) GetUncuratedEvents(ctx context.Context, nodeID string, epochID int64, start, end time.Time) ([]ledgermodels.UncuratedEvent, error) {
	var out []ledgermodels.UncuratedEvent
	for _, e := range f.events {
		if e.NodeID != nodeID || e.EventTime.Before(start) || !e.EventTime.Before(end) {
			continue
		}
		row, has := f.curations[curationKey(epochID, e.ID)]
		if has && row.UserID != nil {
			continue
		}
		clone := *e
		out = append(out, ledgermodels.UncuratedEvent{Event: &clone, HasCuration: has})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Event.EventTime.Equal(out[j].Event.EventTime) {
			return out[i].Event.EventTime.Before(out[j].Event.EventTime)
		}
		return out[i].Event.ID < out[j].Event.ID
	})
	return out, nil
}

func (f *fakeStore) InsertCurationsDoNothing(ctx context.Context, rows []*ledgermodels.Curation) error {
	for _, row := range rows {
		key := curationKey(row.EpochID, row.EventID)
		if _, exists := f.curations[key]; exists {
			continue
		}
		stored := *row
		f.curations[key] = &stored
	}
	return nil
}

func (f *fakeStore) UpdateCurationUserID(ctx context.Context, epochID int64, eventID, userID string) error {
	f.updateUserIDCalls++
	if row, ok := f.curations[curationKey(epochID, eventID)]; ok {
		row.UserID = &userID
	}
	return nil
}

func (f *fakeStore) ResolveIdentities(ctx context.Context, source string, externalIDs []string) (map[string]string, error) {
	resolved := make(map[string]string)
	for _, id := range externalIDs {
		if userID, ok := f.identity[source][id]; ok {
			resolved[id] = userID
		}
	}
	return resolved, nil
}

func (f *fakeStore) Health(ctx context.Context) error { return nil }
func (f *fakeStore) Close()                           {}
