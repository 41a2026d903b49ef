// Package doctree assembles the document tree service from configuration.
package doctree

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emrgen/doctree/internal/cache"
	"github.com/emrgen/doctree/internal/compress"
	"github.com/emrgen/doctree/internal/config"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/emrgen/doctree/internal/jobs"
	"github.com/emrgen/doctree/internal/queue"
	"github.com/emrgen/doctree/internal/store"
	"github.com/emrgen/doctree/internal/tree"
)

// App bundles the store, the tree service and the maintenance jobs built
// from one configuration.
type App struct {
	DB    *gorm.DB
	Store store.Store
	Tree  *tree.Service
	Jobs  *jobs.TaskExecutor

	closers []func() error
}

// Open connects to the configured database and builds an App over it.
func Open(cfg *config.Config, opts ...tree.Option) (*App, error) {
	db, err := config.GetDb(cfg)
	if err != nil {
		return nil, err
	}

	app, err := New(db, cfg, opts...)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	return app, nil
}

// New builds an App over an open database. Redis and kafka sinks are
// attached when configured.
func New(db *gorm.DB, cfg *config.Config, opts ...tree.Option) (*App, error) {
	app := &App{DB: db, Store: store.NewGormStore(db)}

	var (
		cacheSinks cache.Multi
		eventSinks = []eventlog.Sink{eventlog.LogrusSink{}}
	)

	if cfg.EventLog.Persist {
		codec, err := compress.New(cfg.EventLog.Compression)
		if err != nil {
			return nil, err
		}
		eventSinks = append(eventSinks, eventlog.NewStoreSink(app.Store, codec))
	}

	if cfg.Redis.Addr != "" {
		redisSink := cache.NewRedisSink(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		cacheSinks = append(cacheSinks, redisSink)
		app.closers = append(app.closers, redisSink.Close)
		logrus.Infof("cache dependencies are touched in redis at %s", cfg.Redis.Addr)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := queue.NewPublisher(cfg.Kafka.Brokers)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		cacheSinks = append(cacheSinks, publisher)
		eventSinks = append(eventSinks, publisher)
		app.closers = append(app.closers, func() error {
			publisher.Close()
			return nil
		})
	}

	options := []tree.Option{
		tree.WithCache(cacheSinks),
		tree.WithEventLogger(eventlog.NewLogger(cfg.EventLog.Enabled, eventSinks...)),
	}
	app.Tree = tree.New(app.Store, cfg.TreeSettings(), append(options, opts...)...)

	var tasks []jobs.CronJob
	if cfg.Jobs.PathConsistency != "" {
		tasks = append(tasks, jobs.NewPathConsistencyTask(cfg.Jobs.PathConsistency, app.Tree))
	}
	if cfg.Jobs.LinkConsistency != "" {
		tasks = append(tasks, jobs.NewLinkConsistencyTask(cfg.Jobs.LinkConsistency, app.Tree))
	}
	if cfg.Jobs.EventLogCleanup != "" {
		tasks = append(tasks, jobs.NewEventLogCleanupTask(cfg.Jobs.EventLogCleanup, cfg.EventLog.Retention, app.Store))
	}
	app.Jobs = jobs.NewTaskExecutor(tasks...)

	return app, nil
}

// Migrate creates or updates the schema.
func (a *App) Migrate() error {
	return a.Store.Migrate()
}

// Close releases the connections opened for the App in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
