package workflow

import (
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/epochlabs/ledgerx/pkg/source/github"
)

// sourceWeights is the per-source scoring table applied to new epochs.
// Values are integer weight units. An epoch pins whatever table was current
// at its creation; changing this map never rewrites existing epochs.
var sourceWeights = map[string]ledgermodels.WeightConfig{
	github.SourceName: {
		github.EventPullRequestMerged: 10,
		github.EventIssueClosed:       5,
		github.EventPullRequestReview: 3,
	},
}

// DeriveWeights builds the weight configuration for the sources a collection
// run covers. Keys are namespaced "<source>.<event_type>" so two sources with
// the same event type name cannot collide. Sources without a table contribute
// nothing and their events score zero.
func DeriveWeights(sources []string) ledgermodels.WeightConfig {
	weights := make(ledgermodels.WeightConfig)
	for _, src := range sources {
		for eventType, w := range sourceWeights[src] {
			weights[src+"."+eventType] = w
		}
	}
	return weights
}
