// Package scheduler provides the cron-backed implementation of the
// protocol.Scheduler collaborator used by schedule triggers.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/trigion/trigion/pkg/protocol"
)

// Cron schedules recurring jobs with robfig/cron. Every job gets its own cron
// runner so cancelling one never disturbs another.
type Cron struct {
	logger *slog.Logger
}

func NewCron(logger *slog.Logger) *Cron {
	return &Cron{logger: logger.With("module", "scheduler")}
}

// Schedule starts a recurring job for the cron expression. The callback runs
// on every tick until the returned job is cancelled; overlapping ticks are
// skipped and panics inside the callback are recovered.
func (s *Cron) Schedule(cronExpr string, callback func(), opts protocol.ScheduleOptions) (protocol.Job, error) {
	if err := Validate(cronExpr); err != nil {
		return nil, err
	}

	if opts.Timezone != "" {
		cronExpr = "CRON_TZ=" + opts.Timezone + " " + cronExpr
	}

	runner := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entryID, err := runner.AddFunc(cronExpr, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}

	runner.Start()

	s.logger.Debug("Scheduled cron job", "cron", cronExpr, "entry_id", entryID)

	return &job{runner: runner}, nil
}

// Validate checks a cron expression without scheduling anything. Used by the
// registry to reject bad schedule configs before any state mutation.
func Validate(cronExpr string) error {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	return nil
}

type job struct {
	runner *cron.Cron
}

// Cancel stops the job's cron runner. An in-flight tick completes; no further
// ticks fire.
func (j *job) Cancel() {
	j.runner.Stop()
}
