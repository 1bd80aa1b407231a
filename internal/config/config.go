// Package config loads server configuration from a YAML file, an optional
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/ephem"
	"github.com/signalsfoundry/astro-aspects/internal/observability"
	"github.com/signalsfoundry/astro-aspects/model"
)

// Config is the complete server configuration.
type Config struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`

	Engine  EngineConfig                `yaml:"engine"`
	Log     LogConfig                   `yaml:"log"`
	Redis   RedisConfig                 `yaml:"redis"`
	DB      DBConfig                    `yaml:"database"`
	Tracing observability.TracingConfig `yaml:"tracing"`
	Stream  StreamConfig                `yaml:"stream"`
}

// EngineConfig holds the server-wide aspect engine defaults. Requests may
// override the orb.
type EngineConfig struct {
	OrbTolerance  float64           `yaml:"orb_tolerance"`
	UnknownMotion string            `yaml:"unknown_motion"` // applying | separating
	HouseSystem   model.HouseSystem `yaml:"house_system"`
	GrandCross    bool              `yaml:"grand_cross"`
	StelliumSize  int               `yaml:"stellium_size"`
	Demo          bool              `yaml:"demo"` // serve fixture positions instead of the analytic ephemeris
}

// LogConfig mirrors logging.Config in file form.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RedisConfig enables the position cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// DBConfig enables the Postgres subject repository when URL is set.
type DBConfig struct {
	URL string `yaml:"url"`
}

// StreamConfig bounds the transit stream parameters clients may request.
type StreamConfig struct {
	DefaultStep     time.Duration `yaml:"default_step"`
	DefaultInterval time.Duration `yaml:"default_interval"`
	MinInterval     time.Duration `yaml:"min_interval"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		GRPCAddr: ":50051",
		HTTPAddr: ":8080",
		Engine: EngineConfig{
			OrbTolerance:  core.DefaultOrbTolerance,
			UnknownMotion: core.AssumeApplying.String(),
			HouseSystem:   ephem.DefaultHouseSystem,
			GrandCross:    true,
			StelliumSize:  core.DefaultStelliumSize,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Redis:   RedisConfig{TTL: 10 * time.Minute},
		Tracing: observability.DefaultTracingConfig(),
		Stream: StreamConfig{
			DefaultStep:     time.Hour,
			DefaultInterval: time.Second,
			MinInterval:     100 * time.Millisecond,
		},
	}
}

// Load reads path (optional) over the defaults, loads envFile (optional,
// missing files are ignored) and applies environment overrides.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.Engine.HouseSystem, _ = ephem.ParseHouseSystem(string(cfg.Engine.HouseSystem))
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.GRPCAddr, "ASTRO_GRPC_ADDR")
	setString(&cfg.HTTPAddr, "ASTRO_HTTP_ADDR")
	setString(&cfg.Engine.UnknownMotion, "ASTRO_UNKNOWN_MOTION")
	if v := os.Getenv("ASTRO_HOUSE_SYSTEM"); v != "" {
		cfg.Engine.HouseSystem = model.HouseSystem(v)
	}
	if err := setFloat(&cfg.Engine.OrbTolerance, "ASTRO_ORB_TOLERANCE"); err != nil {
		return err
	}
	if err := setBool(&cfg.Engine.GrandCross, "ASTRO_GRAND_CROSS"); err != nil {
		return err
	}
	if err := setBool(&cfg.Engine.Demo, "ASTRO_DEMO"); err != nil {
		return err
	}

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	setString(&cfg.DB.URL, "DATABASE_URL")

	cfg.Tracing = observability.ApplyTracingEnv(cfg.Tracing)
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// Validate checks values that would otherwise fail at request time.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.OrbTolerance <= 0 || c.Engine.OrbTolerance > core.MaxOrbTolerance {
		errs = append(errs, fmt.Errorf("engine.orb_tolerance %v must be in (0, %v]", c.Engine.OrbTolerance, core.MaxOrbTolerance))
	}
	if _, err := core.ParseMotionDefault(c.Engine.UnknownMotion); err != nil {
		errs = append(errs, fmt.Errorf("engine.unknown_motion: %w", err))
	}
	if _, err := ephem.ParseHouseSystem(string(c.Engine.HouseSystem)); err != nil {
		errs = append(errs, fmt.Errorf("engine.house_system: %w", err))
	}
	if c.Engine.StelliumSize < 0 {
		errs = append(errs, fmt.Errorf("engine.stellium_size %d must not be negative", c.Engine.StelliumSize))
	}
	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc_addr is required"))
	}
	if c.Stream.MinInterval <= 0 {
		errs = append(errs, errors.New("stream.min_interval must be positive"))
	}
	return errors.Join(errs...)
}

// MotionDefault returns the parsed unknown-motion policy. Validate must
// have succeeded.
func (c Config) MotionDefault() core.MotionDefault {
	m, _ := core.ParseMotionDefault(c.Engine.UnknownMotion)
	return m
}
