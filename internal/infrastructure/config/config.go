// Package config loads settings from defaults, an optional YAML file, and
// PERCEPTIO_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/validation"
)

const (
	EnvPrefix         = "PERCEPTIO_"
	ConfigPathEnvVar  = "CONFIG_PATH"
	DefaultConfigFile = "config.yaml"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Storage StorageConfig `koanf:"storage"`
	Videos  VideosConfig  `koanf:"videos"`
	Study   StudyConfig   `koanf:"study"`
	Workers WorkersConfig `koanf:"workers"`
}

type ServerConfig struct {
	Address         string        `koanf:"address" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	SubmitRateLimit int           `koanf:"submit_rate_limit" validate:"min=0"` // requests per minute per IP, 0 disables
	PseudoCookieTTL time.Duration `koanf:"pseudo_cookie_ttl" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type StorageConfig struct {
	Records    string `koanf:"records" validate:"oneof=csv sqlite"`
	Users      string `koanf:"users" validate:"oneof=json sqlite badger"`
	CSVPath    string `koanf:"csv_path"`
	JSONPath   string `koanf:"json_path"`
	SQLitePath string `koanf:"sqlite_path"`
	BadgerDir  string `koanf:"badger_dir"`
}

type VideosConfig struct {
	BaseRoot        string        `koanf:"base_root"`
	LicensedRoot    string        `koanf:"licensed_root"`
	ChildrenRoot    string        `koanf:"children_root"`
	IncludeLicensed bool          `koanf:"include_licensed"`
	RescanInterval  time.Duration `koanf:"rescan_interval" validate:"gte=0"`
}

type StudyConfig struct {
	Resolutions []string `koanf:"resolutions" validate:"min=1,dive,required"`
	Threshold   float64  `koanf:"threshold" validate:"gt=0,lte=1"`
	SafeCeiling string   `koanf:"safe_ceiling" validate:"required"`
}

type WorkersConfig struct {
	Count  int `koanf:"count" validate:"min=1"`
	Buffer int `koanf:"buffer" validate:"min=0"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":3000",
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			CORSOrigins:     []string{"*"},
			SubmitRateLimit: 60,
			PseudoCookieTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Storage: StorageConfig{
			Records:    "csv",
			Users:      "json",
			CSVPath:    "data.csv",
			JSONPath:   "data.json",
			SQLitePath: "db/database.db",
			BadgerDir:  "data/badger",
		},
		Videos: VideosConfig{
			BaseRoot:        "Videos_Creative_Common",
			LicensedRoot:    "Videos",
			ChildrenRoot:    "Videos_enfants",
			IncludeLicensed: true,
			RescanInterval:  5 * time.Minute,
		},
		Study: StudyConfig{
			Resolutions: slices.Clone(resolution.DefaultOrder),
			Threshold:   0.70,
			SafeCeiling: "1080p",
		},
		Workers: WorkersConfig{Count: 4, Buffer: 16},
	}
}

// sliceKeys are read from the environment as comma-separated lists.
var sliceKeys = []string{"server.cors_origins", "study.resolutions"}

// Load builds the configuration. path names a YAML file; when empty,
// CONFIG_PATH and then ./config.yaml are tried. A .env file in the working
// directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path = findConfigFile(path); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitLists(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile resolves the YAML file to load. An explicit path or
// CONFIG_PATH is always used; ./config.yaml only when it exists.
func findConfigFile(path string) string {
	if path != "" {
		return path
	}
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// envKey maps PERCEPTIO_SERVER_SHUTDOWN_TIMEOUT to server.shutdown_timeout:
// the first segment names the section, the rest is the field.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + field
}

func splitLists(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks field constraints and that the resolution ladder is usable.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	ladder, err := c.Ladder()
	if err != nil {
		return err
	}
	if !ladder.Contains(c.Study.SafeCeiling) {
		return fmt.Errorf("study.safe_ceiling %q is not in study.resolutions", c.Study.SafeCeiling)
	}
	return nil
}

// Ladder builds the resolution ladder from study.resolutions.
func (c *Config) Ladder() (*resolution.Ladder, error) {
	return resolution.NewLadder(c.Study.Resolutions)
}
