package tester

import (
	"fmt"
	"time"

	"github.com/emrgen/doctree/internal/model"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupPostgres starts a disposable postgres container and returns a migrated
// connection to it together with the function that removes the container.
func SetupPostgres() (*gorm.DB, func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, fmt.Errorf("could not construct pool: %w", err)
	}

	// uses pool to try to connect to Docker
	if err = pool.Client.Ping(); err != nil {
		return nil, nil, fmt.Errorf("could not connect to docker: %w", err)
	}

	resource, err := pool.Run("postgres", "16", []string{
		"POSTGRES_USER=doctree",
		"POSTGRES_PASSWORD=doctree",
		"POSTGRES_DB=doctree",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not start resource: %w", err)
	}

	purge := func() {
		if err := pool.Purge(resource); err != nil {
			logrus.Errorf("could not purge resource: %s", err)
		}
	}

	dsn := fmt.Sprintf("host=localhost port=%s user=doctree password=doctree dbname=doctree sslmode=disable",
		resource.GetPort("5432/tcp"))

	var db *gorm.DB
	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})
	if err != nil {
		purge()
		return nil, nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	if err = model.Migrate(db); err != nil {
		purge()
		return nil, nil, err
	}

	return db, purge, nil
}
