package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/execution"
	"github.com/dorcha-inc/vigil/internal/plugins"
	"github.com/dorcha-inc/vigil/internal/plugins/trace"
	"github.com/dorcha-inc/vigil/internal/service"
	"github.com/dorcha-inc/vigil/internal/transport"
	"github.com/dorcha-inc/vigil/internal/tui"
)

type runOptions struct {
	count     int
	dryRun    bool
	summary   bool
	function  string
	token     string
	deadline  time.Duration
	failEvery int
}

// newRunCmd creates the run command
func newRunCmd(flags *globalFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate monitored invocations of a demo handler",
		Long: `Run a demo handler under monitoring one or more times, with the built-in
plugins and the plugin overrides from the configuration.

Reports are written to stdout as JSON. With --dry-run they are collected in
memory and printed once all invocations finish; add --summary to print a
readable summary instead of JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, flags, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 1, "Number of invocations to run")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Collect reports in memory instead of streaming them")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Print a markdown summary per report (with --dry-run)")
	cmd.Flags().StringVar(&opts.function, "function", "demo", "Function name reported for each invocation")
	cmd.Flags().StringVar(&opts.token, "token", "", "Project token (overrides config file and environment)")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 0, "Simulated host deadline per invocation (0 disables it)")
	cmd.Flags().IntVar(&opts.failEvery, "fail-every", 0, "Make every Nth invocation return an error (0 never fails)")

	return cmd
}

func runRun(cmd *cobra.Command, flags *globalFlags, opts *runOptions) error {
	if opts.count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", opts.count)
	}
	if opts.failEvery < 0 {
		return fmt.Errorf("fail-every must not be negative, got %d", opts.failEvery)
	}

	overrides := map[string]any{}
	if opts.token != "" {
		overrides["token"] = opts.token
	}
	cfg, err := config.LoadWithOverrides(flags.configPath, overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var recorder *transport.Recorder
	if opts.dryRun {
		recorder = transport.NewRecorder()
		cfg.ConnectionFactory = recorder
	} else {
		cfg.ConnectionFactory = transport.NewLogFactory(cmd.OutOrStdout())
	}

	registry := execution.NewRegistry()
	if err := plugins.RegisterBuiltins(registry); err != nil {
		return err
	}

	svc, err := service.New(cfg, registry)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	ui := tui.Default()
	failures := 0
	for i := 0; i < opts.count; i++ {
		ui.Progress(fmt.Sprintf("Running invocation %d/%d", i+1, opts.count))

		host := execution.Host{Function: opts.function}
		if opts.deadline > 0 {
			host.DeadlineAt = time.Now().Add(opts.deadline)
		}

		if _, err := svc.Run(cmd.Context(), host, i, demoHandler(opts.failEvery)); err != nil {
			failures++
			ui.ProgressFailure(fmt.Sprintf("Invocation %d failed: %v", i+1, err))
			continue
		}
		ui.ProgressSuccess(fmt.Sprintf("Invocation %d reported", i+1))
	}

	zap.L().Info("Simulation finished",
		zap.Int("invocations", opts.count),
		zap.Int("failures", failures))

	if recorder == nil {
		return nil
	}
	return printRecorded(cmd, ui, recorder, opts.summary)
}

func printRecorded(cmd *cobra.Command, ui *tui.UI, recorder *transport.Recorder, summary bool) error {
	out := cmd.OutOrStdout()
	for _, rep := range recorder.Reports() {
		if !summary {
			if err := rep.Encode(out); err != nil {
				return err
			}
			continue
		}

		rendered, err := ui.RenderReport(rep, tui.TerminalWidth())
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		if _, err := fmt.Fprintln(out, rendered); err != nil {
			return err
		}
	}
	return nil
}

// demoHandler returns a handler that exercises the execution API the way
// instrumented user code would.
func demoHandler(failEvery int) service.Handler {
	return func(ctx context.Context, input any) (any, error) {
		exec := execution.Current(ctx)

		n, err := execution.InputAs[int](exec)
		if err != nil {
			return nil, err
		}

		tr, traced, err := execution.OptionalPlugin(exec, trace.Token)
		if err != nil {
			return nil, err
		}
		if traced {
			_ = tr.Mark("work-start")
		}

		stop := exec.Measure("demo.compute")
		sum := 0
		for i := 0; i <= (n+1)*1000; i++ {
			sum += i % 7
		}
		if err := stop(); err != nil {
			return nil, err
		}

		if traced {
			_ = tr.Mark("work-end")
			_ = tr.Measure("demo.work", "work-start", "work-end")
		}

		if err := exec.AddCustomMetrics(
			execution.IntMetric("demo.iteration", int64(n)),
			execution.IntMetric("demo.checksum", int64(sum)),
		); err != nil {
			return nil, err
		}
		_ = exec.Label("demo")
		if exec.IsColdStarted() {
			_ = exec.Label("cold")
		}

		if failEvery > 0 && (n+1)%failEvery == 0 {
			return nil, fmt.Errorf("simulated failure on invocation %d", n+1)
		}
		return sum, nil
	}
}
