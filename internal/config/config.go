// Package config wraps viper into the dotted-key settings store consumed by
// the pipeline and the generation loop. The core never writes configuration;
// it only reads keys with a caller-supplied default.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store is the read-only configuration view handed to the rest of the
// application. Lookups use dotted keys ("models.deepseek.deepthink").
type Store struct {
	v *viper.Viper
}

// Load reads the config file at path (or config.yaml/config.json in the
// working directory when path is empty). A missing file is not an error;
// every key the application consults has a default.
func Load(path string) (*Store, error) {
	v := viper.New()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("INTENSERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errorsAs(err, &notFound) && strings.TrimSpace(path) == "" {
			return &Store{v: v}, nil
		}
		if _, statErr := os.Stat(path); path != "" && os.IsNotExist(statErr) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &Store{v: v}, nil
}

// NewFromViper wraps an existing viper instance. Used by tests.
func NewFromViper(v *viper.Viper) *Store {
	applyDefaults(v)
	return &Store{v: v}
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.show_ip", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.path", "logs/intenserp.log")
	v.SetDefault("logging.file.max_size", 20)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 14)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.dump_dir", "debug-logs")

	v.SetDefault("models.deepseek.deepthink", false)
	v.SetDefault("models.deepseek.search", false)
	v.SetDefault("models.deepseek.text_file", false)

	v.SetDefault("formatting.preset", "Classic (Role)")
	v.SetDefault("injection.enabled", true)
	v.SetDefault("injection.system_prompt", "[Important Information]")

	v.SetDefault("cache.mode", "memory")
	v.SetDefault("cache.size", 100)
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.shards", 16)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "intenserp:content:")

	v.SetDefault("driver.bridge_url", "ws://127.0.0.1:9707/bridge")
	v.SetDefault("driver.connect_timeout_seconds", 30)
	v.SetDefault("driver.call_timeout_seconds", 60)
	v.SetDefault("driver.start_timeout_seconds", 30)
	v.SetDefault("driver.target_url", "https://chat.deepseek.com")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "data/history.db")
	v.SetDefault("history.list_limit", 50)
}

// Get retrieves a value by dotted key, falling back to def when the key is
// absent. The viper defaults above make absence rare; the fallback exists
// for keys the config schema does not know about.
func (s *Store) Get(key string, def interface{}) interface{} {
	if s == nil || s.v == nil {
		return def
	}
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.Get(key)
}

func (s *Store) GetBool(key string, def bool) bool {
	if s == nil || s.v == nil || !s.v.IsSet(key) {
		return def
	}
	return s.v.GetBool(key)
}

func (s *Store) GetString(key string, def string) string {
	if s == nil || s.v == nil || !s.v.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

func (s *Store) GetInt(key string, def int) int {
	if s == nil || s.v == nil || !s.v.IsSet(key) {
		return def
	}
	return s.v.GetInt(key)
}

func (s *Store) GetDuration(key string, def time.Duration) time.Duration {
	if s == nil || s.v == nil || !s.v.IsSet(key) {
		return def
	}
	return s.v.GetDuration(key)
}

// errorsAs is a tiny indirection so the viper error type assertion stays in
// one place.
func errorsAs(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}
