// Package config loads runtime configuration from .marriagetiming.yaml,
// MARRIAGE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/shigemiyagi/marriage-astrology-app/internal/cache"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/detect"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	"github.com/shigemiyagi/marriage-astrology-app/internal/scan"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

const (
	// EnvPrefix prefixes every environment override, e.g. MARRIAGE_SCAN_ORB.
	EnvPrefix = "MARRIAGE"
	// FileName is the config file searched for in the working and home directories.
	FileName = ".marriagetiming"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all runtime configuration.
type Config struct {
	Scan    scan.Options            `mapstructure:"scan"`
	Chart   ChartConfig             `mapstructure:"chart"`
	TopN    int                     `mapstructure:"top"`
	Catalog string                  `mapstructure:"catalog"` // optional YAML/TOML override file
	Cache   CacheConfig             `mapstructure:"cache"`
	Breaker ephemeris.BreakerConfig `mapstructure:"breaker"`
	HTTP    HTTPConfig              `mapstructure:"http"`
	Log     LogConfig               `mapstructure:"log"`
}

// ChartConfig controls how birth data is interpreted.
type ChartConfig struct {
	HouseSystem string `mapstructure:"house_system"` // P, O, E or W
	TimeZone    string `mapstructure:"time_zone"`    // IANA zone of the birth wall clock
	UnknownTime string `mapstructure:"unknown_time"` // clock substituted for "unknown"
}

// CacheConfig selects the scan memo store.
type CacheConfig struct {
	Backend string            `mapstructure:"backend"`
	Redis   cache.RedisConfig `mapstructure:"redis"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second
	Burst          int           `mapstructure:"burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console, json or auto
}

// SetDefaults registers every default on v. Keys must be known to viper for
// environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	opts := scan.DefaultOptions()
	v.SetDefault("scan.horizon_years", opts.HorizonYears)
	v.SetDefault("scan.stride", opts.Stride)
	v.SetDefault("scan.start_offset", opts.StartOffset)
	v.SetDefault("scan.orb", detect.DefaultOrb)
	v.SetDefault("scan.workers", opts.Workers)

	v.SetDefault("chart.house_system", ephemeris.Placidus.String())
	v.SetDefault("chart.time_zone", "Asia/Tokyo")
	v.SetDefault("chart.unknown_time", chart.Noon.String())

	v.SetDefault("top", score.DefaultTopN)
	v.SetDefault("catalog", "")

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.redis.addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.ttl", cache.DefaultRedisTTL)

	breaker := ephemeris.DefaultBreakerConfig()
	v.SetDefault("breaker.name", breaker.Name)
	v.SetDefault("breaker.max_requests", breaker.MaxRequests)
	v.SetDefault("breaker.interval", breaker.Interval)
	v.SetDefault("breaker.timeout", breaker.Timeout)
	v.SetDefault("breaker.consecutive_failures", breaker.ConsecutiveFailures)

	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.burst", 10)
	v.SetDefault("http.request_timeout", 2*time.Minute)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 3*time.Minute)
	v.SetDefault("http.cors_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// New returns a viper instance with defaults, the MARRIAGE_ env prefix and
// the config search path. cfgFile, when set, replaces the search.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file if one exists. A missing file in the search
// path is not an error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Decode unmarshals and validates v's current values.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load is New, Read and Decode.
func Load(cfgFile string) (Config, *viper.Viper, error) {
	v := New(cfgFile)
	if err := Read(v); err != nil {
		return Config{}, nil, err
	}
	cfg, err := Decode(v)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, v, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if c.TopN < 0 {
		return fmt.Errorf("top cannot be negative, got %d", c.TopN)
	}
	if err := c.Chart.Validate(); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Validate ensures the level and format are known.
func (c *LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "auto", "console", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q", c.Format)
}

// Validate ensures chart settings parse.
func (c *ChartConfig) Validate() error {
	if _, err := ephemeris.ParseHouseSystem(c.HouseSystem); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("time_zone %q: %w", c.TimeZone, err)
	}
	if _, err := chart.ParseClock(c.UnknownTime, chart.Noon); err != nil {
		return fmt.Errorf("unknown_time: %w", err)
	}
	return nil
}

// Validate ensures the backend is known.
func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr cannot be empty")
		}
		if c.Redis.TTL < 0 {
			return fmt.Errorf("redis ttl cannot be negative, got %s", c.Redis.TTL)
		}
		return nil
	}
	return fmt.Errorf("unknown backend %q", c.Backend)
}

// Validate ensures the server limits are sane.
func (c *HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %g", c.RateLimit)
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// System returns the parsed house system. Call after Validate.
func (c *ChartConfig) System() ephemeris.HouseSystem {
	hs, err := ephemeris.ParseHouseSystem(c.HouseSystem)
	if err != nil {
		return ephemeris.Placidus
	}
	return hs
}

// Location returns the birth time zone.
func (c *ChartConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

// Fallback returns the clock used for unknown birth times.
func (c *ChartConfig) Fallback() chart.Clock {
	clock, err := chart.ParseClock(c.UnknownTime, chart.Noon)
	if err != nil {
		return chart.Noon
	}
	clock.Known = false
	return clock
}

// Forecast returns the service configuration.
func (c *Config) Forecast() forecast.Config {
	return forecast.Config{
		HouseSystem: c.Chart.System(),
		Scan:        c.Scan,
		TopN:        c.TopN,
	}
}
