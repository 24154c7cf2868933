package main

import (
	"github.com/spf13/cobra"

	"taskloop/internal/taskroot"
	"taskloop/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the loop state in a live terminal view",
	Long: `watch opens a full-screen view of the task root that refreshes on
filesystem changes, showing the control state, recent iterations, and
any block report while a run is in flight.`,
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
		return watch.Run(root)
	},
}
