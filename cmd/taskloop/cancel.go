package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskloop/internal/taskroot"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Interrupt the active run",
	Long: `cancel sends an interrupt to the controller currently holding the
task root's run lock. The controller finishes recording the in-flight
iteration and stops with the loop in a resumable state.`,
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

		// Trust the run lock, not the PID file: a crashed controller leaves
		// the file behind, and signaling its recycled PID would hit an
		// unrelated process.
		pid, err := root.ActiveRunnerPID()
		if err != nil {
			return err
		}
		if pid == 0 {
			fmt.Println(mutedStyle.Render("no active run"))
			return nil
		}

		proc, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("finding runner process %d: %w", pid, err)
		}
		if err := proc.Signal(os.Interrupt); err != nil {
			return fmt.Errorf("interrupting runner process %d: %w", pid, err)
		}

		fmt.Println(warnStyle.Render(fmt.Sprintf("interrupted runner (pid %d)", pid)))
		return nil
	},
}
