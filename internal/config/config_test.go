package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/doctree/internal/tree"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "brotli", cfg.EventLog.Compression)
	assert.Equal(t, 90*24*time.Hour, cfg.EventLog.Retention)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, tree.DefaultSettings(), cfg.TreeSettings())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
db:
  driver: postgres
  dsn: host=db user=doctree
tree:
  check_unique_names: true
  preferred_culture: de-DE
  batch_size: 50
event_log:
  retention: 48h
jobs:
  link_consistency: "@every 5m"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doctree.yml"), []byte(yml), 0o600))

	t.Setenv("DOCTREE_DB_DSN", "host=override")
	t.Setenv("DOCTREE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DOCTREE_TREE_AUTO_ORDER", "false")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "host=override", cfg.DB.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 48*time.Hour, cfg.EventLog.Retention)
	assert.Equal(t, "@every 5m", cfg.Jobs.LinkConsistency)

	settings := cfg.TreeSettings()
	assert.True(t, settings.CheckUniqueNames)
	assert.False(t, settings.AutoOrder)
	assert.Equal(t, "de-DE", settings.PreferredCulture)
	assert.Equal(t, 50, settings.BatchSize)
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doctree.yml"), []byte("db: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestGetDb(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.DB.DSN = filepath.Join(t.TempDir(), "doctree.db")
	db, err := GetDb(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	cfg.DB.Driver = "oracle"
	_, err = GetDb(cfg)
	assert.EqualError(t, err, `unknown database driver "oracle"`)
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	require.NoError(t, ConfigureLogging(&Config{LogLevel: "debug"}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.Error(t, ConfigureLogging(&Config{LogLevel: "loud"}))
}
