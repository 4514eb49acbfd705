package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/agent"
	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/spf13/cobra"
)

var (
	runEvery time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <outreach|notification|withdraw>",
	Short: "Run an agent against the persistent Chrome session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := agent.TaskByName(args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, string(task.Kind()))
		if err != nil {
			return err
		}
		defer a.Close()

		// Attach to Chrome, starting it when nothing is listening
		launcher := browser.NewLauncher(browser.LaunchConfig{
			Path:        a.config.Chrome.Path,
			DebugPort:   a.config.Chrome.DebugPort,
			UserDataDir: a.config.Chrome.UserDataDir,
			Headless:    a.config.Chrome.Headless,
			ReadyWait:   a.config.Chrome.ReadyWait,
		}, a.logger)
		if err := launcher.EnsureRunning(ctx); err != nil {
			return fmt.Errorf("failed to start chrome: %w", err)
		}

		page, err := browser.Connect(ctx, a.config.Chrome.DebugPort, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to chrome: %w", err)
		}
		defer page.Close()

		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		if err := page.SetViewport(ctx, pacing.RandomViewport(rnd)); err != nil {
			a.logger.Warn(ctx, "failed to set viewport", map[string]interface{}{
				"error": err.Error(),
			})
		}

		cls, err := newClassifier(ctx, a.config, a.logger)
		if err != nil {
			return err
		}

		runner := agent.NewRunner(a.agentConfig(), a.settings, a.optimizer, a.storage, cls, a.logger,
			pacing.WithRand(rnd))

		runOnce := func(ctx context.Context, t agent.Task) error {
			res, err := runner.Run(ctx, page, t)
			if res != nil {
				printRunResult(res)
			}
			return err
		}

		if runEvery <= 0 {
			return runOnce(ctx, task)
		}

		scheduler := agent.NewScheduler(runOnce, runEvery, task, a.logger)
		scheduler.Trigger(task)
		scheduler.Run(ctx)
		if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func printRunResult(res *agent.Result) {
	if flagJSON {
		printJSON(res)
		return
	}

	for _, adj := range res.Adjustments {
		printMessage("adjusted " + adj.String())
	}
	if res.Record != nil {
		rows := make([][]string, 0, len(res.Record.Metrics))
		for _, key := range sortedKeys(res.Record.Metrics) {
			rows = append(rows, []string{key, fmt.Sprint(res.Record.Metrics[key])})
		}
		printTable([]string{"METRIC", "VALUE"}, rows)
	}
}

func init() {
	runCmd.Flags().DurationVar(&runEvery, "every", 0, "repeat the run on this interval until interrupted")
	rootCmd.AddCommand(runCmd)
}
