package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/doctree/internal/store"
)

// EventLogCleanupTask deletes audit records older than the retention.
type EventLogCleanupTask struct {
	store     store.EventLogStore
	retention time.Duration
	cron      string
	now       func() time.Time
}

func NewEventLogCleanupTask(schedule string, retention time.Duration, s store.EventLogStore) *EventLogCleanupTask {
	return &EventLogCleanupTask{
		store:     s,
		retention: retention,
		cron:      schedule,
		now:       time.Now,
	}
}

func (e *EventLogCleanupTask) Name() string {
	return "event_log_cleanup"
}

func (e *EventLogCleanupTask) Schedule() string {
	return e.cron
}

func (e *EventLogCleanupTask) Run(ctx context.Context) error {
	if e.retention <= 0 {
		return nil
	}

	before := e.now().Add(-e.retention)
	removed, err := e.store.DeleteEventLogsBefore(ctx, before)
	if err != nil {
		return err
	}
	if removed > 0 {
		logrus.Infof("removed %d audit records older than %s", removed, before.Format(time.RFC3339))
	}
	return nil
}
