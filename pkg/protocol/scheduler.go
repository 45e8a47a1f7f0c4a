package protocol

import "github.com/trigion/trigion/pkg/models"

// Job is the handle for a recurring scheduled job. The registry exclusively
// owns the handle of each schedule subscription and must cancel it before the
// subscription is removed.
type Job = models.ScheduledJob

// ScheduleOptions carries optional scheduling parameters.
type ScheduleOptions struct {
	Timezone string
}

// Scheduler realizes time-based triggers. Implementations invoke callback on
// every tick of the cron expression until the returned job is cancelled.
type Scheduler interface {
	Schedule(cronExpr string, callback func(), opts ScheduleOptions) (Job, error)
}
