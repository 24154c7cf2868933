package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskloop/internal/loop"
	"taskloop/internal/taskroot"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear a blocked state so the loop can run again",
	Long: `reset clears the block report and the consecutive-failure counter,
returning a blocked task root to pending. Completed or max-iteration
roots are terminal and cannot be reset. Iteration history, progress,
and evidence are preserved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := taskDir()
		if err != nil {
			return err
		}
		root, err := taskroot.Open(dir)
		if err != nil {
			return err
		}
		if err := loop.Reset(root); err != nil {
			if errors.Is(err, taskroot.ErrLocked) {
				return fmt.Errorf("%w (stop the active run first with 'taskloop cancel')", err)
			}
			return err
		}
		fmt.Println(goodStyle.Render("reset: loop is pending, run 'taskloop run' to resume"))
		return nil
	},
}
