// Package config loads the doctree configuration from the environment and
// an optional doctree.yml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emrgen/doctree/internal/tree"
)

const (
	envPrefix      = "DOCTREE"
	configFileName = "doctree"
)

type Config struct {
	Env      string         `mapstructure:"env"`
	LogLevel string         `mapstructure:"log_level"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	EventLog EventLogConfig `mapstructure:"event_log"`
	Tree     TreeConfig     `mapstructure:"tree"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type DBConfig struct {
	// Driver is postgres or sqlite.
	Driver string `mapstructure:"driver"`
	// DSN is the postgres connection string or the sqlite file path.
	DSN   string `mapstructure:"dsn"`
	Debug bool   `mapstructure:"debug"`
}

// RedisConfig enables the redis cache dependency sink when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// KafkaConfig enables publishing of cache keys and audit records when
// Brokers is set.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type EventLogConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Persist writes records to the event_log table.
	Persist     bool          `mapstructure:"persist"`
	Compression string        `mapstructure:"compression"`
	Retention   time.Duration `mapstructure:"retention"`
}

type TreeConfig struct {
	AutoOrder                 bool   `mapstructure:"auto_order"`
	CheckUniqueNames          bool   `mapstructure:"check_unique_names"`
	CheckUniqueAliases        bool   `mapstructure:"check_unique_aliases"`
	TouchCacheDependencies    bool   `mapstructure:"touch_cache_dependencies"`
	GenerateNewGUIDs          bool   `mapstructure:"generate_new_guids"`
	CheckLinkConsistency      bool   `mapstructure:"check_link_consistency"`
	UpdateAliasOnRename       bool   `mapstructure:"update_alias_on_rename"`
	PreferredCulture          string `mapstructure:"preferred_culture"`
	CombineWithDefaultCulture bool   `mapstructure:"combine_with_default_culture"`
	AliasMaxLength            int    `mapstructure:"alias_max_length"`
	BatchSize                 int    `mapstructure:"batch_size"`
}

// JobsConfig holds cron schedules of the maintenance tasks. An empty
// schedule disables the task.
type JobsConfig struct {
	PathConsistency string `mapstructure:"path_consistency"`
	LinkConsistency string `mapstructure:"link_consistency"`
	EventLogCleanup string `mapstructure:"event_log_cleanup"`
}

func setDefaults(v *viper.Viper) {
	defaults := tree.DefaultSettings()

	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "doctree.db")
	v.SetDefault("db.debug", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("kafka.brokers", []string{})

	v.SetDefault("event_log.enabled", defaults.LogEvents)
	v.SetDefault("event_log.persist", true)
	v.SetDefault("event_log.compression", "brotli")
	v.SetDefault("event_log.retention", 90*24*time.Hour)

	v.SetDefault("tree.auto_order", defaults.AutoOrder)
	v.SetDefault("tree.check_unique_names", defaults.CheckUniqueNames)
	v.SetDefault("tree.check_unique_aliases", defaults.CheckUniqueAliases)
	v.SetDefault("tree.touch_cache_dependencies", defaults.TouchCacheDependencies)
	v.SetDefault("tree.generate_new_guids", defaults.GenerateNewGUIDs)
	v.SetDefault("tree.check_link_consistency", defaults.CheckLinkConsistency)
	v.SetDefault("tree.update_alias_on_rename", defaults.UpdateAliasOnRename)
	v.SetDefault("tree.preferred_culture", defaults.PreferredCulture)
	v.SetDefault("tree.combine_with_default_culture", defaults.CombineWithDefaultCulture)
	v.SetDefault("tree.alias_max_length", defaults.AliasMaxLength)
	v.SetDefault("tree.batch_size", defaults.BatchSize)

	v.SetDefault("jobs.path_consistency", "@daily")
	v.SetDefault("jobs.link_consistency", "@hourly")
	v.SetDefault("jobs.event_log_cleanup", "@daily")
}

// LoadConfig reads DOCTREE_* variables, a .env file and doctree.yml from
// the given directories, the working directory when none is given.
// Variables win over the file.
func LoadConfig(dirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType("yml")
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// TreeSettings maps the configuration to the settings of a tree.Service.
func (c *Config) TreeSettings() tree.Settings {
	return tree.Settings{
		AutoOrder:                 c.Tree.AutoOrder,
		CheckUniqueNames:          c.Tree.CheckUniqueNames,
		CheckUniqueAliases:        c.Tree.CheckUniqueAliases,
		TouchCacheDependencies:    c.Tree.TouchCacheDependencies,
		LogEvents:                 c.EventLog.Enabled,
		GenerateNewGUIDs:          c.Tree.GenerateNewGUIDs,
		CheckLinkConsistency:      c.Tree.CheckLinkConsistency,
		UpdateAliasOnRename:       c.Tree.UpdateAliasOnRename,
		PreferredCulture:          c.Tree.PreferredCulture,
		CombineWithDefaultCulture: c.Tree.CombineWithDefaultCulture,
		AliasMaxLength:            c.Tree.AliasMaxLength,
		BatchSize:                 c.Tree.BatchSize,
	}
}

// ConfigureLogging applies the log level and picks the JSON formatter
// outside development.
func ConfigureLogging(cfg *Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if cfg.Env == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	return nil
}

// GetDb opens the configured database.
func GetDb(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DB.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DB.Driver)
	}

	mode := logger.Silent
	if cfg.DB.Debug {
		mode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(mode)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DB.Driver, err)
	}
	logrus.Infof("connected to %s database", cfg.DB.Driver)

	return db, nil
}
