package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fgrehm/cradle/internal/workspace"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last spawn and the environment of the current project",
	Args:  cobra.NoArgs,
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

		u.Keyval("project", rr.ProjectName)
		u.Keyval("source", rr.ProjectRoot)
		u.Keyval("config", rr.RelativeConfigPath)

		rec, err := a.store.Load(rr.WorkspaceID)
		switch {
		case errors.Is(err, workspace.ErrWorkspaceNotFound):
			u.Keyval("last spawn", u.StatusColor("never"))
		case err != nil:
			return err
		default:
			u.Keyval("last spawn", recordSummary(rec))
			if rec.VolumeName != "" {
				u.Keyval("volume", rec.VolumeName)
			}
		}

		if avail := a.docker.Check(cmd.Context()); !avail.IsAvailable {
			u.Keyval("container", u.StatusColor("unknown"))
			u.Dim(avail.Message)
			return nil
		}

		env, err := a.locator.Find(cmd.Context(), rr.ProjectRoot)
		if err != nil {
			return err
		}
		if env == nil {
			u.Keyval("container", u.StatusColor("missing"))
			return nil
		}
		u.Keyval("container", shortID(env.ContainerID)+" "+env.Name)
		u.Keyval("status", u.StatusColor(env.Status))
		return nil
	},
}

// recordSummary renders a spawn record as "ok 2026-10-19 12:30 (1m5s)" or
// "failed at FileCopyToBootstrap 2026-10-19 12:30".
func recordSummary(rec *workspace.Record) string {
	when := rec.StartedAt.Local().Format("2006-01-02 15:04")
	switch {
	case rec.Success && rec.Reused:
		return "reused " + when
	case rec.Success:
		return "ok " + when + " (" + rec.Duration.Round(time.Second).String() + ")"
	}
	return "failed at " + rec.Step + " " + when
}
