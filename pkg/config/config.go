// Package config loads Loom configuration from defaults, an optional yaml
// file, and LOOM_-prefixed environment variables, in that order.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Skills    SkillsConfig    `koanf:"skills"`
	Events    EventsConfig    `koanf:"events"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type SkillsConfig struct {
	BuiltinDir string `koanf:"builtin_dir"`
	UserDir    string `koanf:"user_dir"`
	WrapperDir string `koanf:"wrapper_dir"`
}

type EventsConfig struct {
	Store string `koanf:"store"` // sqlite, memory
	Path  string `koanf:"path"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Load reads configuration, layering file and environment over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("skills.builtin_dir", "skills")
	k.Set("skills.user_dir", ".loom/skills")
	k.Set("skills.wrapper_dir", ".loom/wrappers")

	k.Set("events.store", "sqlite")
	k.Set("events.path", ".loom/events.db")

	k.Set("telemetry.exporter", "stdout")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (LOOM_SKILLS_USER_DIR -> skills.user_dir)
	if err := k.Load(env.Provider("LOOM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "LOOM_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
