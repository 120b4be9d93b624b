package activity

import (
	ledgerstore "github.com/epochlabs/ledgerx/pkg/db/ledger"
	redisclient "github.com/epochlabs/ledgerx/pkg/redis"
	"github.com/epochlabs/ledgerx/pkg/source"
	"go.uber.org/zap"
)

// Sources with a wired identity-resolution capability. Events from other
// sources keep a null user id until a resolver is added for them.
var resolvableSources = map[string]bool{
	"github": true,
}

// Context carries the collaborators every ledger activity needs.
type Context struct {
	Logger *zap.Logger
	// LedgerDB is the epoch/cursor/event/curation store.
	LedgerDB ledgerstore.Store
	// Sources is the adapter registry; unregistered sources soft-skip.
	Sources *source.Registry
	// RedisClient publishes run summaries. Optional; nil disables publishing.
	RedisClient *redisclient.Client
}
