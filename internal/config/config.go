/**
 * Configuration for the region annotator
 *
 * Defaults, then an optional config file named by DZZ_CONFIG, then DZZ_* environment
 * variables (db.host -> DZZ_DB_HOST).
 */

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds annotator configuration
type Config struct {
	// Shared store connection
	DBHost     string
	DBPort     int
	DBPassword string
	DBIndex    int

	// Key namespaces
	SessionNamespace string // <namespace>:session:<host>:<port>
	SourcesNamespace string // <namespace>:<host>:<port> list of record keys

	// Synchronization
	SyncWithOthers bool
	Debounce       time.Duration
	ExplicitNotify bool // publish keyspace-style events ourselves after session writes
	KeyspaceEvents bool // enable notify-keyspace-events on the store at startup

	// Script generation
	AutoRunScripts    bool
	RunSinglePageOnly bool
	QueueName         string

	// Script worker
	EngineCommand     string
	EngineArgs        []string
	WorkerConcurrency int
	ScriptTimeout     time.Duration

	LogLevel string
}

// LoadConfig loads configuration from defaults, optional file and environment
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", 6379)
	v.SetDefault("db.password", "")
	v.SetDefault("db.index", 0)
	v.SetDefault("session.namespace", "dzz")
	v.SetDefault("sources.namespace", "machinic:structured")
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.debounce", "100ms")
	v.SetDefault("sync.explicit_notify", false)
	v.SetDefault("sync.keyspace_events", false)
	v.SetDefault("scripts.auto_run", true)
	v.SetDefault("scripts.single_page", false)
	v.SetDefault("queue.name", "keli")
	v.SetDefault("engine.command", "")
	v.SetDefault("engine.args", []string{})
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.timeout", "5m")
	v.SetDefault("log.level", "info")

	if path := os.Getenv("DZZ_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("DZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		DBHost:            v.GetString("db.host"),
		DBPort:            v.GetInt("db.port"),
		DBPassword:        v.GetString("db.password"),
		DBIndex:           v.GetInt("db.index"),
		SessionNamespace:  v.GetString("session.namespace"),
		SourcesNamespace:  v.GetString("sources.namespace"),
		SyncWithOthers:    v.GetBool("sync.enabled"),
		Debounce:          v.GetDuration("sync.debounce"),
		ExplicitNotify:    v.GetBool("sync.explicit_notify"),
		KeyspaceEvents:    v.GetBool("sync.keyspace_events"),
		AutoRunScripts:    v.GetBool("scripts.auto_run"),
		RunSinglePageOnly: v.GetBool("scripts.single_page"),
		QueueName:         v.GetString("queue.name"),
		EngineCommand:     v.GetString("engine.command"),
		EngineArgs:        v.GetStringSlice("engine.args"),
		WorkerConcurrency: v.GetInt("worker.concurrency"),
		ScriptTimeout:     v.GetDuration("worker.timeout"),
		LogLevel:          v.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("db.host is required")
	}

	if c.DBPort < 1 || c.DBPort > 65535 {
		return fmt.Errorf("db.port must be between 1 and 65535, got %d", c.DBPort)
	}

	if c.DBIndex < 0 {
		return fmt.Errorf("db.index must not be negative, got %d", c.DBIndex)
	}

	if c.SessionNamespace == "" {
		return fmt.Errorf("session.namespace is required")
	}

	if c.Debounce < 0 || c.Debounce > 10*time.Second {
		return fmt.Errorf("sync.debounce must be between 0 and 10s, got %v", c.Debounce)
	}

	if c.QueueName == "" {
		return fmt.Errorf("queue.name is required")
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", c.WorkerConcurrency)
	}

	return nil
}
