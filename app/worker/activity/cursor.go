package activity

import (
	"context"
	"fmt"

	"github.com/epochlabs/ledgerx/app/worker/types"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"go.uber.org/zap"
)

// LoadCursor returns the stored sync position for one key. A key that has
// never been synced yields a nil value, not an error.
func (ac *Context) LoadCursor(ctx context.Context, in types.CursorKeyInput) (types.LoadCursorOutput, error) {
	cursor, err := ac.LedgerDB.GetCursor(ctx, cursorKey(in))
	if err != nil {
		return types.LoadCursorOutput{}, fmt.Errorf("get cursor: %w", err)
	}
	if cursor == nil {
		return types.LoadCursorOutput{}, nil
	}
	return types.LoadCursorOutput{Value: &cursor.Value}, nil
}

// SaveCursor upserts the cursor for one key, never regressing the stored
// value: the effective value is max(existing, incoming).
func (ac *Context) SaveCursor(ctx context.Context, in types.SaveCursorInput) (types.SaveCursorOutput, error) {
	key := cursorKey(in.Key)

	existing, err := ac.LedgerDB.GetCursor(ctx, key)
	if err != nil {
		return types.SaveCursorOutput{}, fmt.Errorf("get cursor: %w", err)
	}

	effective := effectiveCursor(existing, in.Value)
	if effective != in.Value {
		ac.Logger.Debug("Cursor save would regress, keeping stored value",
			zap.String("source", key.Source),
			zap.String("stream", key.Stream),
			zap.String("source_ref", key.SourceRef),
			zap.String("stored", effective),
			zap.String("incoming", in.Value))
	}

	if err := ac.LedgerDB.UpsertCursor(ctx, key, effective); err != nil {
		return types.SaveCursorOutput{}, fmt.Errorf("upsert cursor: %w", err)
	}

	return types.SaveCursorOutput{EffectiveValue: effective}, nil
}

// effectiveCursor compares cursor values lexicographically. This is correct
// only while adapters emit RFC3339 timestamps, whose string order matches
// their time order. An adapter emitting opaque pagination tokens needs a
// per-source comparison strategy plugged in here instead.
func effectiveCursor(existing *ledgermodels.Cursor, incoming string) string {
	if existing != nil && existing.Value > incoming {
		return existing.Value
	}
	return incoming
}

func cursorKey(in types.CursorKeyInput) ledgermodels.CursorKey {
	return ledgermodels.CursorKey{
		NodeID:    in.NodeID,
		ScopeID:   in.ScopeID,
		Source:    in.Source,
		Stream:    in.Stream,
		SourceRef: in.SourceRef,
	}
}
