package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters, exported on the worker's /metrics endpoint.
var (
	EpochsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerx_epochs_created_total",
		Help: "Number of epoch rows created by ensure-epoch.",
	})

	EventsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerx_events_collected_total",
		Help: "Number of activity events returned by source adapters.",
	}, []string{"source"})

	EventsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerx_events_inserted_total",
		Help: "Number of activity events handed to the idempotent insert.",
	})

	CurationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerx_curations_created_total",
		Help: "Number of curation rows created by curate-and-resolve.",
	})

	IdentitiesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerx_identities_resolved_total",
		Help: "Number of delta events that ended a curation run resolved.",
	})

	IdentitiesUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerx_identities_unresolved_total",
		Help: "Number of delta events retained with a null user id.",
	})
)
