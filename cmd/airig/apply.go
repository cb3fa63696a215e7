package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/airig-sh/airig/internal/domain/execution"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Converge the host onto the manifest",
	Long: `Apply evaluates every step and executes the ones whose desired
state does not hold yet, in dependency order. Files are snapshotted
before they are modified so a run can be rolled back.

A real apply requires root. Use --dry-run to preview without root and
without touching anything.`,
	RunE: runApply,
}

var (
	applyDryRun        bool
	applyResumeFrom    string
	applyOnly          []string
	applyStopOnFailure bool
	applyTimeout       time.Duration
)

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "show what would be done without making changes")
	applyCmd.Flags().StringVar(&applyResumeFrom, "resume-from", "", "skip steps before this one; the named step runs")
	applyCmd.Flags().StringSliceVar(&applyOnly, "only", nil, "limit to these steps and their dependencies")
	applyCmd.Flags().BoolVar(&applyStopOnFailure, "stop-on-failure", true, "halt at the first failed step (use =false to continue, skipping dependents)")
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 0, "per-step time limit (0 = unbounded)")
}

func runApply(_ *cobra.Command, _ []string) error {
	a := newApp(os.Stdout)

	opts := execution.NewOptions()
	opts.DryRun = applyDryRun
	opts.ResumeFrom = applyResumeFrom
	opts.StopOnFailure = applyStopOnFailure
	opts.StepTimeout = applyTimeout

	result, err := a.Apply(context.Background(), opts, applyOnly)
	if err != nil {
		return err
	}

	a.PrintResult(result)

	if result.Failed() {
		return errStepsFailed
	}
	return nil
}
