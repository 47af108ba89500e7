// Package config loads sensorsql settings from defaults, an optional YAML
// file, SENSORSQL_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/SimonWaldherr/sensorsql/internal/dataset"
	"github.com/SimonWaldherr/sensorsql/internal/engine"
	"github.com/SimonWaldherr/sensorsql/internal/logger"
	"github.com/SimonWaldherr/sensorsql/internal/metrics"
	"github.com/SimonWaldherr/sensorsql/internal/render"
	"github.com/SimonWaldherr/sensorsql/internal/stream"
)

// EnvPrefix prefixes every environment override, e.g. SENSORSQL_ENGINE_MODE.
const EnvPrefix = "SENSORSQL"

type EngineConfig struct {
	Mode string `mapstructure:"mode"`
}

type DatasetConfig struct {
	Size int   `mapstructure:"size"`
	Seed int64 `mapstructure:"seed"`
}

type ServerConfig struct {
	HTTP string `mapstructure:"http"`
	GRPC string `mapstructure:"grpc"`
}

type RenderConfig struct {
	Format string `mapstructure:"format"`
}

type SimulateConfig struct {
	stream.Intervals `mapstructure:",squash"`
	Velocity         int64         `mapstructure:"velocity"`
	Duration         time.Duration `mapstructure:"duration"`
}

// Config is the fully resolved configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Log      logger.Config  `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Render   RenderConfig   `mapstructure:"render"`
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine:  EngineConfig{Mode: string(engine.ModeAuto)},
		Dataset: DatasetConfig{Size: dataset.DefaultSize},
		Log:     logger.Config{Level: "INFO", Format: "text"},
		Server:  ServerConfig{HTTP: ":8080", GRPC: ":9090"},
		Render:  RenderConfig{Format: string(render.Table)},
		Simulate: SimulateConfig{
			Intervals: stream.DefaultIntervals(),
			Velocity:  metrics.DefaultVelocity,
			Duration:  10 * time.Second,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine.mode", d.Engine.Mode)
	v.SetDefault("dataset.size", d.Dataset.Size)
	v.SetDefault("dataset.seed", d.Dataset.Seed)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.source", d.Log.AddSource)
	v.SetDefault("server.http", d.Server.HTTP)
	v.SetDefault("server.grpc", d.Server.GRPC)
	v.SetDefault("render.format", d.Render.Format)
	v.SetDefault("simulate.structured", d.Simulate.Structured)
	v.SetDefault("simulate.logs", d.Simulate.Logs)
	v.SetDefault("simulate.json", d.Simulate.Documents)
	v.SetDefault("simulate.bigdata", d.Simulate.Volume)
	v.SetDefault("simulate.stream", d.Simulate.Stream)
	v.SetDefault("simulate.velocity", d.Simulate.Velocity)
	v.SetDefault("simulate.duration", d.Simulate.Duration)
}

// Load resolves the configuration. path names an optional YAML file; flags
// maps config keys to command-line flags whose explicitly set values win.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// Every key has a default, so AutomaticEnv sees them all during Unmarshal.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, f := range flags {
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c *Config) Validate() error {
	if _, err := engine.ParseMode(c.Engine.Mode); err != nil {
		return fmt.Errorf("engine.mode: %w", err)
	}
	if _, err := render.ParseFormat(c.Render.Format); err != nil {
		return fmt.Errorf("render.format: %w", err)
	}
	if c.Dataset.Size < 0 {
		return fmt.Errorf("dataset.size: must not be negative, got %d", c.Dataset.Size)
	}
	if c.Simulate.Velocity < 0 {
		return fmt.Errorf("simulate.velocity: must not be negative, got %d", c.Simulate.Velocity)
	}
	return nil
}
