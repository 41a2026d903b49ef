// Package jobs runs the scheduled maintenance of the tree.
package jobs

import (
	"context"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs cron jobs, never more than one run of the same job at a
// time.
type TaskExecutor struct {
	cron     *cron.Cron
	cronJobs []CronJob
	running  mapset.Set[string]
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewTaskExecutor(cronJobs ...CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:     cron.New(),
		cronJobs: cronJobs,
		running:  mapset.NewThreadUnsafeSet[string](),
	}
}

// Jobs lists the registered jobs.
func (t *TaskExecutor) Jobs() []CronJob {
	return t.cronJobs
}

// Start schedules every job in the cron. Jobs see ctx until Stop.
func (t *TaskExecutor) Start(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(ctx)

	for _, job := range t.cronJobs {
		job := job
		err := t.cron.AddFunc(job.Schedule(), func() {
			if _, err := t.run(t.ctx, job); err != nil {
				logrus.Errorf("task %s failed: %v", job.Name(), err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule task %s: %w", job.Name(), err)
		}
		logrus.Infof("scheduled task %s at %s", job.Name(), job.Schedule())
	}

	t.cron.Start()
	return nil
}

// RunOnce runs the named job immediately.
func (t *TaskExecutor) RunOnce(ctx context.Context, name string) error {
	for _, job := range t.cronJobs {
		if job.Name() != name {
			continue
		}
		ran, err := t.run(ctx, job)
		if err != nil {
			return err
		}
		if !ran {
			return fmt.Errorf("task %s is already running", name)
		}
		return nil
	}

	return fmt.Errorf("unknown task %s", name)
}

// run executes job unless a run of it is in flight. It reports whether the
// job ran.
func (t *TaskExecutor) run(ctx context.Context, job Job) (bool, error) {
	t.mu.Lock()
	if t.running.Contains(job.Name()) {
		t.mu.Unlock()
		logrus.Warnf("task %s is already running", job.Name())
		return false, nil
	}
	t.running.Add(job.Name())
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.running.Remove(job.Name())
	}()

	return true, job.Run(ctx)
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
	if t.cancel != nil {
		t.cancel()
	}
}
