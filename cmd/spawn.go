package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fgrehm/cradle/internal/engine"
)

var (
	spawnNoCopy   bool
	spawnNoEditor bool
	spawnName     string
)

var spawnCmd = &cobra.Command{
	Use:   "spawn",
	Short: "Spawn the project's devcontainer into a new Docker volume",
	Long: `Spawn copies the project into a fresh Docker volume through a short-lived
bootstrap container, runs "devcontainer up" against that volume and opens
the editor attached to the result. If the project already has an
environment it is reused (and started if stopped).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		a, err := newApp()
		if err != nil {
			return err
		}

		rr, err := resolveProject()
		if err != nil {
			return err
		}

		opts := spawnOptions(cmd, a.settings.ShouldCopySourceFiles(), a.settings.ShouldLaunchEditor())
		opts.ProjectPath = rr.ProjectRoot
		opts.DevContainerPath = rr.ConfigPath
		if opts.ProjectName == "" {
			opts.ProjectName = rr.ProjectName
		}

		u.Dim(versionString())
		u.Header("Spawning " + opts.ProjectName)

		progress := u.StartProgress()
		if verboseFlag || debugFlag {
			a.engine.SetProgress(func(msg string) { u.Dim("  " + msg) })
		} else {
			a.engine.SetProgress(progress.Step)
		}

		res := a.engine.SpawnLocal(cmd.Context(), opts)
		if res.Success {
			progress.Stop()
		} else {
			progress.Fail()
		}

		for _, w := range res.Warnings {
			u.Warn(w)
		}
		if !res.Success {
			u.Frame(res.CompletedStep.String(), strings.Join(res.Errors, "\n"))
			return fmt.Errorf("spawn failed at %s", res.CompletedStep)
		}

		if res.Reused {
			u.Success("Reusing existing environment")
		} else {
			u.Success("Environment ready")
		}
		u.Keyval("volume", res.VolumeName)
		if res.ContainerID != "" {
			u.Keyval("container", shortID(res.ContainerID))
		}
		u.Keyval("folder", res.RemoteWorkspaceFolder)
		u.Keyval("took", res.Duration.Round(time.Second).String())
		return nil
	},
}

func init() {
	spawnCmd.Flags().BoolVar(&spawnNoCopy, "no-copy", false, "copy only the devcontainer config into the volume, not the project sources")
	spawnCmd.Flags().BoolVar(&spawnNoEditor, "no-editor", false, "do not open the editor once the environment is up")
	spawnCmd.Flags().StringVar(&spawnName, "name", "", "project name used for the volume (defaults to the project directory name)")
}

// spawnOptions merges settings defaults, .cradlerc and flags, in that
// order of precedence from lowest to highest.
func spawnOptions(cmd *cobra.Command, copySources, launchEditor bool) engine.SpawnOptions {
	opts := engine.SpawnOptions{CopySourceFiles: copySources, LaunchEditor: launchEditor}
	if rc != nil {
		opts.ProjectName = rc.Name
		if rc.Copy != nil {
			opts.CopySourceFiles = *rc.Copy
		}
		if rc.Editor != nil {
			opts.LaunchEditor = *rc.Editor
		}
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		opts.ProjectName = spawnName
	}
	if flags.Changed("no-copy") {
		opts.CopySourceFiles = !spawnNoCopy
	}
	if flags.Changed("no-editor") {
		opts.LaunchEditor = !spawnNoEditor
	}
	return opts
}
