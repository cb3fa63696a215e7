package main

import (
	"os"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs and their outcomes",
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(_ *cobra.Command, _ []string) error {
	a := newApp(os.Stdout)

	summaries, err := a.Runs()
	if err != nil {
		return err
	}

	a.PrintRuns(summaries)
	return nil
}
