package fitctl

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fitd/pkg/types"
)

// buildRootCmdWith constructs the command tree bound to cfg.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "fitctl",
		Short:         "Command-line client for the fitd model server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Server base URL (defaults FITD_URL or http://localhost:8080)")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	root.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: table|json")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfg.Output != "table" && cfg.Output != "json" {
			return exitError{code: 2, err: fmt.Errorf("unknown output format %q", cfg.Output)}
		}
		return nil
	}

	root.AddCommand(
		fitCmd(cfg),
		predictCmd(cfg),
		nameCmd(cfg, "load", "Load a persisted model into memory", func(ctx context.Context, name string) (string, error) {
			return cfg.client().Load(ctx, name)
		}),
		nameCmd(cfg, "unload", "Drop a model from memory", func(ctx context.Context, name string) (string, error) {
			return "unloaded", cfg.client().Unload(ctx, name)
		}),
		nameCmd(cfg, "remove", "Delete a persisted model", func(ctx context.Context, name string) (string, error) {
			return "deleted", cfg.client().Remove(ctx, name)
		}),
		removeAllCmd(cfg),
		statusCmd(cfg),
		modelsCmd(cfg),
		jobsCmd(cfg),
	)
	return root
}

func fitCmd(cfg *Config) *cobra.Command {
	var (
		kind, data, xs, ys, params string
		wait                       bool
		waitTimeout                time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fit <name>",
		Short: "Start a training job",
		Example: "  fitctl fit iris --kind logreg --data iris.csv --wait\n" +
			"  fitctl fit toy --kind lr --x '[[0],[1]]' --y '[1,3]'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.FitRequest{Name: args[0], ModelType: kind}
			var err error
			switch {
			case data != "":
				ds, err := readDataset(data, true)
				if err != nil {
					return err
				}
				req.X, req.Y = ds.X, ds.Y
			case xs != "" && ys != "":
				if req.X, err = parseMatrix(xs); err != nil {
					return err
				}
				if req.Y, err = parseTargets(ys); err != nil {
					return err
				}
			default:
				return exitError{code: 2, err: fmt.Errorf("fit needs --data or both --x and --y")}
			}
			if req.Params, err = parseParams(params); err != nil {
				return err
			}
			c := cfg.client()
			id, err := c.Fit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !wait {
				return printReply(cmd, cfg, types.StatusReply{Status: "started", JobID: id})
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
			defer cancel()
			j, err := c.WaitJob(ctx, args[0], 250*time.Millisecond)
			if err != nil {
				return err
			}
			if err := printJobs(cmd.OutOrStdout(), cfg.Output, []types.JobStatus{j}); err != nil {
				return err
			}
			if j.State == types.JobFailed {
				return fmt.Errorf("training failed: %s", j.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Model kind: logreg|randf|lr")
	cmd.Flags().StringVar(&data, "data", "", "Training data: .json {X, y} or .csv with the target in the last column")
	cmd.Flags().StringVar(&xs, "x", "", "Feature matrix as JSON, e.g. '[[0,0],[1,1]]'")
	cmd.Flags().StringVar(&ys, "y", "", "Targets as JSON, e.g. '[0,1]'")
	cmd.Flags().StringVar(&params, "params", "", "Estimator parameters as a JSON object")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job to finish")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 10*time.Minute, "Maximum time to wait with --wait")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func predictCmd(cfg *Config) *cobra.Command {
	var data, xs string
	cmd := &cobra.Command{
		Use:     "predict <name>",
		Short:   "Predict with a loaded model",
		Example: "  fitctl predict iris --x '[[5.1,3.5,1.4,0.2]]'\n  fitctl predict iris --data rows.csv",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var X [][]float64
			switch {
			case data != "":
				ds, err := readDataset(data, false)
				if err != nil {
					return err
				}
				X = ds.X
			case xs != "":
				var err error
				if X, err = parseMatrix(xs); err != nil {
					return err
				}
			default:
				return exitError{code: 2, err: fmt.Errorf("predict needs --data or --x")}
			}
			out, err := cfg.client().Predict(cmd.Context(), args[0], X)
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(cmd.OutOrStdout(), types.PredictResponse{Predictions: out})
			}
			for _, p := range out {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "Feature rows: .json {X} or .csv")
	cmd.Flags().StringVar(&xs, "x", "", "Feature matrix as JSON")
	return cmd
}

// nameCmd builds a single-argument command whose action returns a status.
func nameCmd(cfg *Config, use, short string, action func(ctx context.Context, name string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := action(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printReply(cmd, cfg, types.StatusReply{Status: st})
		},
	}
}

func removeAllCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-all",
		Short: "Delete every persisted model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cfg.client().RemoveAll(cmd.Context())
			if err != nil {
				return err
			}
			return printReply(cmd, cfg, types.StatusReply{Status: "all_deleted", Removed: &n})
		},
	}
}

func statusCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cfg.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), cfg.Output, st)
		},
	}
}

func modelsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List persisted models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := cfg.client().Models(cmd.Context())
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), cfg.Output, models)
		},
	}
}

func jobsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs [name]",
		Short: "List training jobs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg.client()
			if len(args) == 1 {
				j, err := c.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJobs(cmd.OutOrStdout(), cfg.Output, []types.JobStatus{j})
			}
			jobs, err := c.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			return printJobs(cmd.OutOrStdout(), cfg.Output, jobs)
		},
	}
}

func printReply(cmd *cobra.Command, cfg *Config, r types.StatusReply) error {
	if cfg.Output == "json" {
		return printJSON(cmd.OutOrStdout(), r)
	}
	switch {
	case r.JobID != "":
		fmt.Fprintf(cmd.OutOrStdout(), "%s (job %s)\n", r.Status, r.JobID)
	case r.Removed != nil:
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d removed)\n", r.Status, *r.Removed)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), r.Status)
	}
	return nil
}
