package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:                   ":8080",
		ModelDir:               "./models",
		MaxProcesses:           4,
		MaxLoaded:              8,
		LogLevel:               "info",
		LogFormat:              "json",
		MaxBodyBytes:           32 << 20,
		CORSMethods:            []string{"GET", "POST", "OPTIONS"},
		CORSHeaders:            []string{"Content-Type", "X-Log-Level", "X-Request-Id"},
		ShutdownTimeoutSeconds: 30,
	}
}

// ShutdownTimeout returns ShutdownTimeoutSeconds as a duration.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	validateOnce.Do(func() { validate = validator.New(validator.WithRequiredStructEnabled()) })
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
