package jobs

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/doctree/internal/tree"
)

// PathConsistencyTask rewrites alias and name paths that drifted from the
// tree structure.
type PathConsistencyTask struct {
	svc  *tree.Service
	cron string
}

func NewPathConsistencyTask(schedule string, svc *tree.Service) *PathConsistencyTask {
	return &PathConsistencyTask{svc: svc, cron: schedule}
}

func (p *PathConsistencyTask) Name() string {
	return "path_consistency"
}

func (p *PathConsistencyTask) Schedule() string {
	return p.cron
}

func (p *PathConsistencyTask) Run(ctx context.Context) error {
	updated, err := p.svc.RepairPaths(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("path consistency check done, %d rows repaired", updated)
	return nil
}

// LinkConsistencyTask removes links whose original is gone.
type LinkConsistencyTask struct {
	svc  *tree.Service
	cron string
}

func NewLinkConsistencyTask(schedule string, svc *tree.Service) *LinkConsistencyTask {
	return &LinkConsistencyTask{svc: svc, cron: schedule}
}

func (l *LinkConsistencyTask) Name() string {
	return "link_consistency"
}

func (l *LinkConsistencyTask) Schedule() string {
	return l.cron
}

func (l *LinkConsistencyTask) Run(ctx context.Context) error {
	if !l.svc.Settings().CheckLinkConsistency {
		logrus.Debug("link consistency check is disabled")
		return nil
	}

	removed, err := l.svc.RemoveDanglingLinks(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("link consistency check done, %d nodes removed", removed)
	return nil
}
