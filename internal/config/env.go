package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces the service's environment variables.
const EnvPrefix = "FITD_"

// LoadDotEnv loads KEY=VALUE pairs from path (".env" when empty) into the
// process environment without overriding variables that are already set. A
// missing file is not an error.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. The unprefixed names
// MODEL_DIR, MAX_PROCESSES_ALLOWED and MAX_LOADED_MODELS are honoured;
// FITD_* names take precedence over them.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(names ...string) (string, bool) {
		for _, n := range names {
			if v, ok := lookup(n); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
	var errs []error
	intVar := func(dst *int, names ...string) {
		if v, ok := get(names...); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", names[0], v))
				return
			}
			*dst = n
		}
	}
	strVar := func(dst *string, names ...string) {
		if v, ok := get(names...); ok {
			*dst = v
		}
	}
	listVar := func(dst *[]string, name string) {
		if v, ok := get(name); ok {
			*dst = splitList(v)
		}
	}

	strVar(&cfg.Addr, EnvPrefix+"ADDR")
	strVar(&cfg.ModelDir, EnvPrefix+"MODEL_DIR", "MODEL_DIR")
	intVar(&cfg.MaxProcesses, EnvPrefix+"MAX_PROCESSES", "MAX_PROCESSES_ALLOWED")
	intVar(&cfg.MaxLoaded, EnvPrefix+"MAX_LOADED", "MAX_LOADED_MODELS")
	strVar(&cfg.JobsDB, EnvPrefix+"JOBS_DB")
	strVar(&cfg.LogLevel, EnvPrefix+"LOG_LEVEL")
	strVar(&cfg.LogFormat, EnvPrefix+"LOG_FORMAT")
	if v, ok := get(EnvPrefix + "MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_BODY_BYTES: %q is not an integer", EnvPrefix, v))
		} else {
			cfg.MaxBodyBytes = n
		}
	}
	if v, ok := get(EnvPrefix + "CORS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCORS_ENABLED: %q is not a boolean", EnvPrefix, v))
		} else {
			cfg.CORSEnabled = b
		}
	}
	listVar(&cfg.CORSOrigins, EnvPrefix+"CORS_ORIGINS")
	listVar(&cfg.CORSMethods, EnvPrefix+"CORS_METHODS")
	listVar(&cfg.CORSHeaders, EnvPrefix+"CORS_HEADERS")
	intVar(&cfg.RateLimitPerMinute, EnvPrefix+"RATE_LIMIT_PER_MINUTE")
	listVar(&cfg.Preload, EnvPrefix+"PRELOAD")
	intVar(&cfg.ShutdownTimeoutSeconds, EnvPrefix+"SHUTDOWN_TIMEOUT_SECONDS")
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve builds the effective configuration from defaults, the optional
// file at path, the .env file and the environment. CLI flags are applied by
// the caller afterwards.
func Resolve(path, dotenv string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := Load(path)
		if err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		cfg = Merge(cfg, f)
	}
	if err := LoadDotEnv(dotenv); err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}
