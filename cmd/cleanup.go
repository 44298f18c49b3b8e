package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupStagingFlag string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup VOLUME",
	Short: "Remove what a failed spawn left behind",
	Long: `Cleanup removes every container labelled for VOLUME (bootstrap and
half-created devcontainers), force-removes the volume and deletes the
local staging directory given with --staging. Missing resources are
skipped. Volumes not created by cradle are never removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireRuntime(cmd.Context()); err != nil {
			return err
		}

		warnings := a.engine.CleanupFailedSpawn(cmd.Context(), args[0], cleanupStagingFlag)
		for _, w := range warnings {
			u.Warn(w)
		}
		if len(warnings) > 0 {
			return fmt.Errorf("cleanup of %s incomplete", args[0])
		}
		u.Success("Cleaned up " + args[0])
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupStagingFlag, "staging", "", "local staging directory to delete")
}
