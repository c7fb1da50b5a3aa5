// Package config resolves coordinator settings from lfg.toml, LFG_* environment
// variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "lfg"
	configType = "toml"
	configDir  = ".config/lfg"
	envPrefix  = "LFG"
)

const (
	StoreTOML   = "toml"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	GatewayMemory = "memory"
	GatewayBridge = "bridge"
)

type Config struct {
	HTTP    HTTPConfig
	Store   StoreConfig
	Gateway GatewayConfig
	Limits  LimitsConfig
	Log     LogConfig
}

type HTTPConfig struct {
	Listen string
}

type StoreConfig struct {
	Driver    string
	Path      string
	SQLiteDSN string
	RedisURL  string
	RedisKey  string
}

type GatewayConfig struct {
	Driver    string
	BridgeURL string
	Timeout   time.Duration
}

type LimitsConfig struct {
	RateWindow        time.Duration
	RateQuota         int
	IdleGrace         time.Duration
	SessionLifetime   time.Duration
	SweepInterval     time.Duration
	SessionTTL        time.Duration
	CommunityTTL      time.Duration
	FanoutParallelism int
}

type LogConfig struct {
	Level  string
	Format string
}

// New returns a viper instance with defaults, config search paths and env
// binding applied. Callers may Set overrides before calling Load.
func New() (*viper.Viper, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(baseDir)
	v.AddConfigPath(".")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.listen", "127.0.0.1:8087")
	v.SetDefault("store.driver", StoreTOML)
	v.SetDefault("store.path", filepath.Join(baseDir, "state.toml"))
	v.SetDefault("store.sqlite_dsn", filepath.Join(baseDir, "state.db"))
	v.SetDefault("store.redis_url", "redis://127.0.0.1:6379/0")
	v.SetDefault("store.redis_key", "lfg:state")
	v.SetDefault("gateway.driver", GatewayMemory)
	v.SetDefault("gateway.bridge_url", "http://127.0.0.1:8088")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("limits.rate_window", 60*time.Second)
	v.SetDefault("limits.rate_quota", 5)
	v.SetDefault("limits.idle_grace", 5*time.Minute)
	v.SetDefault("limits.session_lifetime", 24*time.Hour)
	v.SetDefault("limits.sweep_interval", 60*time.Second)
	v.SetDefault("limits.session_ttl", 25*time.Hour)
	v.SetDefault("limits.community_ttl", 720*time.Hour)
	v.SetDefault("limits.fanout_parallelism", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	return v, nil
}

// Load reads the config file if one exists and decodes the result. A missing
// file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		HTTP: HTTPConfig{Listen: v.GetString("http.listen")},
		Store: StoreConfig{
			Driver:    strings.ToLower(v.GetString("store.driver")),
			Path:      v.GetString("store.path"),
			SQLiteDSN: v.GetString("store.sqlite_dsn"),
			RedisURL:  v.GetString("store.redis_url"),
			RedisKey:  v.GetString("store.redis_key"),
		},
		Gateway: GatewayConfig{
			Driver:    strings.ToLower(v.GetString("gateway.driver")),
			BridgeURL: v.GetString("gateway.bridge_url"),
			Timeout:   v.GetDuration("gateway.timeout"),
		},
		Limits: LimitsConfig{
			RateWindow:        v.GetDuration("limits.rate_window"),
			RateQuota:         v.GetInt("limits.rate_quota"),
			IdleGrace:         v.GetDuration("limits.idle_grace"),
			SessionLifetime:   v.GetDuration("limits.session_lifetime"),
			SweepInterval:     v.GetDuration("limits.sweep_interval"),
			SessionTTL:        v.GetDuration("limits.session_ttl"),
			CommunityTTL:      v.GetDuration("limits.community_ttl"),
			FanoutParallelism: v.GetInt("limits.fanout_parallelism"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreTOML, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Gateway.Driver {
	case GatewayMemory, GatewayBridge:
	default:
		return fmt.Errorf("unknown gateway driver %q", c.Gateway.Driver)
	}
	if c.HTTP.Listen == "" {
		return errors.New("http.listen is empty")
	}

	durations := map[string]time.Duration{
		"gateway.timeout":         c.Gateway.Timeout,
		"limits.rate_window":      c.Limits.RateWindow,
		"limits.idle_grace":       c.Limits.IdleGrace,
		"limits.session_lifetime": c.Limits.SessionLifetime,
		"limits.sweep_interval":   c.Limits.SweepInterval,
		"limits.session_ttl":      c.Limits.SessionTTL,
		"limits.community_ttl":    c.Limits.CommunityTTL,
	}
	for key, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}
	if c.Limits.RateQuota <= 0 {
		return fmt.Errorf("limits.rate_quota must be positive, got %d", c.Limits.RateQuota)
	}
	if c.Limits.FanoutParallelism <= 0 {
		return fmt.Errorf("limits.fanout_parallelism must be positive, got %d", c.Limits.FanoutParallelism)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", l.Level, err)
	}
	return level, nil
}
