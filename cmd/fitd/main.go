package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fitd/internal/config"
	"fitd/internal/eventbus"
	"fitd/internal/httpapi"
	"fitd/internal/jobs"
	"fitd/internal/logging"
	"fitd/internal/manager"
	"fitd/internal/store"
	"fitd/internal/supervisor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fitd:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string
	cmd := &cobra.Command{
		Use:           "fitd",
		Short:         "Train, load, serve and delete supervised-learning models over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(configPath, envFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "Config file (.yaml, .yml, .json, .toml)")
	fl.StringVar(&envFile, "env-file", "", "Dotenv file to load (default .env if present)")
	fl.String("addr", "", "HTTP listen address, e.g. :8080")
	fl.String("model-dir", "", "Directory holding model artifacts")
	fl.Int("max-processes", 0, "Maximum concurrent training jobs")
	fl.Int("max-loaded", 0, "Maximum models resident in memory")
	fl.String("jobs-db", "", "bbolt file for training job records (empty keeps them in memory)")
	fl.String("log-level", "", "Log level: debug|info|warn|error")
	fl.String("log-format", "", "Log format: json|console")
	fl.StringSlice("preload", nil, "Models to load at startup")
	fl.Int("rate-limit", 0, "Requests per minute per client IP (0 disables)")
	return cmd
}

// applyFlags overlays explicitly set flags onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	str := func(name string, dst *string) {
		if fl.Changed(name) {
			*dst, _ = fl.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if fl.Changed(name) {
			*dst, _ = fl.GetInt(name)
		}
	}
	str("addr", &cfg.Addr)
	str("model-dir", &cfg.ModelDir)
	num("max-processes", &cfg.MaxProcesses)
	num("max-loaded", &cfg.MaxLoaded)
	str("jobs-db", &cfg.JobsDB)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	num("rate-limit", &cfg.RateLimitPerMinute)
	if fl.Changed("preload") {
		cfg.Preload, _ = fl.GetStringSlice("preload")
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	st, err := store.New(cfg.ModelDir)
	if err != nil {
		return err
	}
	js, err := openJobs(cfg.JobsDB)
	if err != nil {
		return err
	}
	defer js.Close()

	bus := eventbus.New(log)
	defer bus.Close()

	mgr, err := manager.NewWithConfig(manager.Config{
		Store:        st,
		Jobs:         js,
		MaxProcesses: cfg.MaxProcesses,
		MaxLoaded:    cfg.MaxLoaded,
		Logger:       log,
		Publisher:    bus,
	})
	if err != nil {
		return err
	}
	if r := mgr.SanityCheck(); !r.Writable {
		log.Warn().Str("store_root", r.StoreRoot).Str("error", r.Error).Msg("model directory is not writable")
	}
	if len(cfg.Preload) > 0 {
		n := mgr.Preload(ctx, cfg.Preload)
		log.Info().Int("loaded", n).Strs("requested", cfg.Preload).Msg("preload finished")
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
	httpapi.SetRateLimit(cfg.RateLimitPerMinute)
	httpapi.SetBaseContext(ctx)
	httpapi.SetEventSource(bus)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.New(log.With().Str("component", "supervisor").Logger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.ShutdownTimeout(),
	})
	tree.AddAPIService(supervisor.NewHTTPService(srv, cfg.ShutdownTimeout()))
	tree.AddBackgroundService(supervisor.StopOn(
		eventbus.LogService{Bus: bus, Log: log.With().Str("component", "events").Logger()},
		eventbus.ErrClosed,
	))

	log.Info().
		Str("addr", cfg.Addr).
		Str("model_dir", st.Root()).
		Int("max_processes", cfg.MaxProcesses).
		Int("max_loaded", cfg.MaxLoaded).
		Msg("fitd listening")

	err = tree.Serve(ctx)
	closeManager(mgr, cfg.ShutdownTimeout(), log)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("fitd stopped")
	return nil
}

func openJobs(path string) (jobs.Store, error) {
	if path == "" {
		return jobs.NewMemory(), nil
	}
	b, err := jobs.Open(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// closeManager waits for training jobs. A zero timeout waits indefinitely.
func closeManager(mgr *manager.Manager, timeout time.Duration, log zerolog.Logger) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := mgr.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("training jobs still running at exit")
	}
}
