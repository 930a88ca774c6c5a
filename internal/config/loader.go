package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Default() when merged.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr" validate:"required"`
	ModelDir     string `json:"model_dir" yaml:"model_dir" toml:"model_dir" validate:"required"`
	MaxProcesses int    `json:"max_processes" yaml:"max_processes" toml:"max_processes" validate:"gt=0"`
	MaxLoaded    int    `json:"max_loaded" yaml:"max_loaded" toml:"max_loaded" validate:"gt=0"`
	// JobsDB is the bbolt file for job status records. Empty keeps them in memory.
	JobsDB string `json:"jobs_db" yaml:"jobs_db" toml:"jobs_db"`

	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled off"`
	LogFormat    string `json:"log_format" yaml:"log_format" toml:"log_format" validate:"omitempty,oneof=json console"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" validate:"gte=0"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`

	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute" validate:"gte=0"`

	// Preload lists models to load at startup.
	Preload []string `json:"preload" yaml:"preload" toml:"preload"`

	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds" validate:"gte=0"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge returns base with every non-zero field of over applied on top.
func Merge(base, over Config) Config {
	out := base
	setStr(&out.Addr, over.Addr)
	setStr(&out.ModelDir, over.ModelDir)
	setInt(&out.MaxProcesses, over.MaxProcesses)
	setInt(&out.MaxLoaded, over.MaxLoaded)
	setStr(&out.JobsDB, over.JobsDB)
	setStr(&out.LogLevel, over.LogLevel)
	setStr(&out.LogFormat, over.LogFormat)
	if over.MaxBodyBytes != 0 {
		out.MaxBodyBytes = over.MaxBodyBytes
	}
	if over.CORSEnabled {
		out.CORSEnabled = true
	}
	setList(&out.CORSOrigins, over.CORSOrigins)
	setList(&out.CORSMethods, over.CORSMethods)
	setList(&out.CORSHeaders, over.CORSHeaders)
	setInt(&out.RateLimitPerMinute, over.RateLimitPerMinute)
	setList(&out.Preload, over.Preload)
	setInt(&out.ShutdownTimeoutSeconds, over.ShutdownTimeoutSeconds)
	return out
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = append([]string(nil), v...)
	}
}
