// Package fitctl implements the fitd command-line client.
package fitctl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fitd/internal/client"
)

type Config struct {
	Addr    string
	Timeout time.Duration
	Output  string
}

func defaultConfig() *Config {
	return &Config{
		Addr:    envStr("FITD_URL", "http://localhost:8080"),
		Timeout: time.Duration(envInt("FITD_TIMEOUT_SECONDS", 30)) * time.Second,
		Output:  envStr("FITCTL_OUTPUT", "table"),
	}
}

func (c *Config) client() *client.Client { return client.New(c.Addr, c.Timeout) }

// exitError carries a specific exit code.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }
func (e exitError) Unwrap() error { return e.err }

// MainWithArgs is a testable variant of Main that accepts args and writers
// explicitly. It returns an exit code (0 for success, non-zero on error).
func MainWithArgs(args []string, stdout, stderr io.Writer) int {
	cfg := defaultConfig()
	root := buildRootCmdWith(cfg)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if len(args) == 0 {
		_ = root.Usage()
		return 2
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err.Error())
		var ee exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/fitctl.
func Main() int { return MainWithArgs(os.Args[1:], os.Stdout, os.Stderr) }

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
