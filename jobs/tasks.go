package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPeriodRefresh marks the period containing today as current.
	TaskPeriodRefresh = "ledger:period_refresh"
	// TaskIntegrityScan verifies posted journal entries still balance.
	TaskIntegrityScan = "ledger:integrity_scan"
)

// NewPeriodRefreshTask constructs the daily period refresh task.
func NewPeriodRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskPeriodRefresh, nil)
}

// NewIntegrityScanTask constructs the ledger integrity scan task.
func NewIntegrityScanTask() *asynq.Task {
	return asynq.NewTask(TaskIntegrityScan, nil)
}
