package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/airig-sh/airig/internal/domain/rollback"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <run-id>",
	Short: "Restore the files a previous run modified",
	Long: `Rollback walks a previous run's steps in reverse order and restores
each snapshotted file to its pre-run state. Files that did not exist
before the run are removed.

Rollback stops at the first irreversible step (package installs, ufw
changes); everything after it is restored, everything before it is left
as-is. Requires root.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(_ *cobra.Command, args []string) error {
	a := newApp(os.Stdout)

	result, err := a.Rollback(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, rollback.ErrNothingToRollback) {
			fmt.Printf("Run %s has nothing to roll back.\n", args[0])
			return nil
		}
		return err
	}

	a.PrintRollback(result)
	return nil
}
