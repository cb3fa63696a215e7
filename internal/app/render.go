package app

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/airig-sh/airig/internal/domain/execution"
	"github.com/airig-sh/airig/internal/domain/report"
	"github.com/airig-sh/airig/internal/domain/rollback"
	"github.com/airig-sh/airig/internal/domain/step"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"})
)

// PrintPlan writes a human-readable plan.
func (a *App) PrintPlan(plan *execution.Plan) {
	summary := plan.Summary()
	a.printf("%s\n\n", titleStyle.Render("Plan"))

	for _, entry := range plan.Entries() {
		id := entry.Step().ID().String()
		switch entry.Status() {
		case step.StatusSatisfied:
			a.printf("  %s %s\n", successStyle.Render("✓"), mutedStyle.Render(id))
		case step.StatusNeedsApply:
			a.printf("  %s %s\n", warnStyle.Render("+"), id)
			if diff := entry.Diff(); !diff.IsEmpty() {
				a.printf("      %s\n", mutedStyle.Render(diff.Summary()))
			}
		case step.StatusUnknown:
			a.printf("  %s %s\n", warnStyle.Render("?"), id)
		}
	}

	a.printf("\n%d steps: %d to apply, %d satisfied", summary.Total, summary.NeedsApply, summary.Satisfied)
	if summary.Unknown > 0 {
		a.printf(", %d unknown", summary.Unknown)
	}
	a.printf("\n")

	if !plan.HasChanges() {
		a.printf("%s\n", successStyle.Render("Nothing to do. The host matches the manifest."))
	}
}

// PrintResult writes the outcome of an apply run.
func (a *App) PrintResult(result *execution.Result) {
	a.printf("%s %s\n\n", titleStyle.Render("Run"), mutedStyle.Render(result.RunID))

	for _, rec := range result.Records {
		switch rec.Outcome {
		case report.OutcomeSucceeded:
			a.printf("  %s %s\n", successStyle.Render("✓"), rec.StepID)
		case report.OutcomeSkipped:
			a.printf("  %s %s\n", mutedStyle.Render("-"), mutedStyle.Render(rec.StepID+" ("+rec.Reason+")"))
		case report.OutcomeWouldRun:
			a.printf("  %s %s\n", warnStyle.Render("+"), rec.StepID+" (would run)")
		case report.OutcomeFailed:
			a.printf("  %s %s\n", errorStyle.Render("✗"), rec.StepID)
			a.printf("      %s\n", errorStyle.Render(rec.Error))
		}
	}

	s := result.Summary
	a.printf("\n%d succeeded, %d skipped, %d failed", s.Succeeded, s.Skipped, s.Failed)
	if s.WouldRun > 0 {
		a.printf(", %d would run", s.WouldRun)
	}
	a.printf("\n")

	if len(s.Irreversible) > 0 {
		a.printf("%s\n", warnStyle.Render(fmt.Sprintf("%d irreversible steps applied; rollback will stop there.", len(s.Irreversible))))
	}
	if result.Halted {
		a.printf("%s\n", errorStyle.Render("Run halted after the first failure. Fix the cause and re-run, or use --resume-from."))
	}
}

// PrintRollback writes the outcome of a rollback.
func (a *App) PrintRollback(result *rollback.Result) {
	a.printf("%s %s\n\n", titleStyle.Render("Rollback"), mutedStyle.Render(result.RunID))

	for _, id := range result.RolledBack {
		a.printf("  %s %s\n", successStyle.Render("↩"), id)
	}

	if result.Complete() {
		a.printf("\n%s\n", successStyle.Render("All reversible steps restored."))
		return
	}
	a.printf("\n%s\n", warnStyle.Render("Stopped at irreversible step "+result.HaltedAt+"; earlier steps were not restored."))
}

// PrintRuns writes one line per recorded run.
func (a *App) PrintRuns(summaries []report.Summary) {
	if len(summaries) == 0 {
		a.printf("No runs recorded.\n")
		return
	}

	a.printf("%s\n\n", titleStyle.Render("Runs"))
	for _, s := range summaries {
		line := fmt.Sprintf("  %s  %d succeeded, %d skipped, %d failed", s.RunID, s.Succeeded, s.Skipped, s.Failed)
		if s.Failed > 0 {
			a.printf("%s\n", errorStyle.Render(line))
			continue
		}
		a.printf("%s\n", line)
	}
}

// printf writes to the configured output, ignoring write errors.
func (a *App) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
