package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "HASHCACHE"

// Config the application's configuration structure
type Config struct {
	Enabled       bool
	Driver        string
	Connection    string
	RedisURL      string
	Database      int
	Prefix        string
	Codec         string
	MaxValueBytes int
	TTLPolicy     string
	LogBackend    string
	LogLevel      string
	Hooks         string
	AsyncHooks    bool
	MetricsFile   string
}

// LoadConfig loads the config from a file if specified, otherwise from the environment
func LoadConfig(cmd *cobra.Command, envPrefix string) (*Config, error) {
	v := viper.New()

	// Setting defaults for this application
	v.SetDefault("enabled", true)
	v.SetDefault("driver", "redis")
	v.SetDefault("connection", "hash")
	v.SetDefault("redisURL", "redis://127.0.0.1:6379")
	v.SetDefault("database", 2)
	v.SetDefault("prefix", "")
	v.SetDefault("codec", "json")
	v.SetDefault("maxValueBytes", 0)
	v.SetDefault("ttlPolicy", "field")
	v.SetDefault("logBackend", "logrus")
	v.SetDefault("logLevel", "warn")
	v.SetDefault("hooks", "none")
	v.SetDefault("asyncHooks", false)
	v.SetDefault("metricsFile", "")

	// Read Config from ENV
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Read Config from Flags
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	// Read Config from file
	if configFile, err := cmd.Flags().GetString("config-file"); err == nil && configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func oneOf(key, val string, allowed ...string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be one of %s, got %q", key, strings.Join(allowed, "|"), val)
}

func (c *Config) Validate() error {
	checks := []error{
		oneOf("driver", c.Driver, "redis", "redis-kv", "ristretto", "bigcache", "lru", "memory"),
		oneOf("codec", c.Codec, "json", "msgpack", "cbor", "string"),
		oneOf("ttlPolicy", c.TTLPolicy, "field", "namespace"),
		oneOf("logBackend", c.LogBackend, "logrus", "zap", "slog"),
		oneOf("hooks", c.Hooks, "none", "slog", "prometheus"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.Connection == "" {
		return fmt.Errorf("config: connection must not be empty")
	}
	if c.Database < 0 {
		return fmt.Errorf("config: database must be >= 0, got %d", c.Database)
	}
	return nil
}
