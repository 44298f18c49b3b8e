package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/fgrehm/cradle/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that Docker, the devcontainer CLI and the editor are available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		a, err := newApp()
		if err != nil {
			return err
		}

		u.Dim(versionString())
		u.Header("Checking prerequisites")

		ok := true
		check := func(passed bool, msg string) {
			report(u, passed, msg)
			ok = ok && passed
		}

		avail := a.docker.Check(cmd.Context())
		check(avail.IsAvailable, avail.Message)

		if installed, version := a.tools.DevcontainerCLIInstalled(cmd.Context()); installed {
			check(true, "devcontainer CLI "+version)
		} else {
			check(false, "devcontainer CLI not found (npm install -g @devcontainers/cli)")
		}

		// The editor is optional: spawn only warns when it cannot be opened.
		if installed, inst := a.tools.EditorInstalled(); installed {
			report(u, true, "editor "+inst.Path+" ("+string(inst.Source)+")")
		} else {
			u.Warn("editor not found; spawned environments will not be opened automatically")
		}

		u.Keyval("home", a.settings.Home)
		u.Keyval("image", a.settings.BootstrapImage)

		if !ok {
			return errors.New("some checks failed")
		}
		return nil
	},
}

func report(u *ui.UI, passed bool, msg string) {
	if passed {
		u.Success(msg)
	} else {
		u.Failure(msg)
	}
}
