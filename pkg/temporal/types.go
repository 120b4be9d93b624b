package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
)

// Default namespace for the ledger worker fleet.
const DefaultNamespace = "ledgerx"

// Queue names
const (
	QueueLedger = "ledger"
)

// Schedule IDs
const (
	ScheduleCollection = "collection"
)

// Workflow ID patterns
const (
	// WorkflowIDCollection is parameterized by scope key and window start date.
	WorkflowIDCollection = "collect:%s:%s"
)

// Workflow registration names
const (
	CollectionWorkflowName = "CollectionWorkflow"
)

// CollectionWorkflowID returns the workflow ID for a collection run of the
// given scope. The window start date keeps concurrent scopes and periods apart
// while letting overlapping scheduler ticks for the same period share an ID.
func CollectionWorkflowID(scopeKey string, windowStart time.Time) string {
	return fmt.Sprintf(WorkflowIDCollection, scopeKey, windowStart.UTC().Format("2006-01-02"))
}

// GetScheduleSpec returns a schedule spec for the given interval.
func GetScheduleSpec(interval time.Duration) client.ScheduleSpec {
	return client.ScheduleSpec{Intervals: []client.ScheduleIntervalSpec{{Every: interval}}}
}

// CronScheduleSpec returns a schedule spec for a cron expression.
func CronScheduleSpec(expr string) client.ScheduleSpec {
	return client.ScheduleSpec{CronExpressions: []string{expr}}
}
