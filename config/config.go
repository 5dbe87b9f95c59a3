// services/flickering/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Cache drivers understood by the registry.
const (
	CacheDriverFile  = "file"
	CacheDriverRedis = "redis"
)

// Config holds the bootstrap configuration of the client installation.
type Config struct {
	// Root is the installation directory. Relative values resolve against
	// the working directory.
	Root   string      `mapstructure:"root"`
	Cache  CacheConfig `mapstructure:"cache"`
	Redis  RedisConfig `mapstructure:"redis"`
	HTTP   HTTPConfig  `mapstructure:"http"`
	Log    LogConfig   `mapstructure:"log"`
	Logger *logrus.Logger
}

// CacheConfig selects and locates the cache store.
type CacheConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

// HTTPConfig holds the remote API transport settings.
type HTTPConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Root: ".",
		Cache: CacheConfig{
			Driver: CacheDriverFile,
			Dir:    "cache",
			Prefix: "flickering:",
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
		},
		HTTP: HTTPConfig{
			Endpoint: "https://api.flickr.com/services/rest/",
			Timeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// CachePath returns the cache directory, resolved against Root when relative.
func (c Config) CachePath() string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	return filepath.Join(c.Root, c.Cache.Dir)
}

// Validate checks the settings the registry depends on.
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New("root directory is required")
	}
	switch c.Cache.Driver {
	case CacheDriverFile:
		if c.Cache.Dir == "" {
			return errors.New("cache directory is required for the file driver")
		}
	case CacheDriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis address is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if c.HTTP.Endpoint == "" {
		return errors.New("http endpoint is required")
	}
	return nil
}

// Load reads configuration from a file and environment variables. An empty
// path or a missing file falls back to defaults and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FLICKERING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("root", d.Root)
	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.prefix", d.Cache.Prefix)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("http.endpoint", d.HTTP.Endpoint)
	v.SetDefault("http.timeout", "30s")

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
