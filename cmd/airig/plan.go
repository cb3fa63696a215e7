package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what apply would change",
	Long: `Plan compiles the manifest into steps, evaluates each step's
current state and prints what a real apply would do. No changes are made
and root is not required.`,
	RunE: runPlan,
}

var planOnly []string

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringSliceVar(&planOnly, "only", nil, "limit to these steps and their dependencies")
}

func runPlan(_ *cobra.Command, _ []string) error {
	a := newApp(os.Stdout)

	plan, err := a.Plan(context.Background(), planOnly)
	if err != nil {
		return err
	}

	a.PrintPlan(plan)
	return nil
}
