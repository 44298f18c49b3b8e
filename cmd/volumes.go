package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fgrehm/cradle/internal/locator"
	"github.com/fgrehm/cradle/internal/volume"
	"github.com/fgrehm/cradle/internal/workspace"
)

var volumesRmForce bool

var volumesCmd = &cobra.Command{
	Use:     "volumes",
	Aliases: []string{"volume"},
	Short:   "List the volumes created by cradle",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireRuntime(cmd.Context()); err != nil {
			return err
		}

		vols, err := a.volumes.ListManaged(cmd.Context())
		if err != nil {
			return err
		}
		if len(vols) == 0 {
			u.Dim("No volumes")
			return nil
		}

		u.Table([]string{"VOLUME", "PROJECT", "CREATED", "SOURCE"}, volumeRows(vols, a.store))
		return nil
	},
}

var volumesRmCmd = &cobra.Command{
	Use:     "rm VOLUME...",
	Aliases: []string{"remove"},
	Short:   "Remove cradle volumes",
	Long: `Remove one or more volumes created by cradle. A volume still used by a
container is refused unless --force is given, in which case the containers
are removed first. Volumes not created by cradle are never touched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireRuntime(cmd.Context()); err != nil {
			return err
		}

		vols, err := a.volumes.ListManaged(cmd.Context())
		if err != nil {
			return err
		}
		managed := make(map[string]bool, len(vols))
		for _, v := range vols {
			managed[v.Name] = true
		}

		var errs []error
		for _, name := range args {
			if !managed[name] {
				errs = append(errs, fmt.Errorf("%s: %w", name, volume.ErrNotManaged))
				continue
			}
			if err := a.removeVolume(cmd.Context(), name, volumesRmForce); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			u.Success("Removed " + name)
		}
		return errors.Join(errs...)
	},
}

func init() {
	volumesRmCmd.Flags().BoolVarP(&volumesRmForce, "force", "f", false, "remove containers using the volume first")
	volumesCmd.AddCommand(volumesRmCmd)
}

// removeVolume deletes a managed volume and the spawn record pointing at
// it. Without force a volume still mounted by a container is refused.
func (a *app) removeVolume(ctx context.Context, name string, force bool) error {
	users, err := a.runtime.ListContainers(ctx, map[string]string{locator.LabelVolume: name})
	if err != nil {
		return err
	}

	switch {
	case len(users) > 0 && !force:
		return fmt.Errorf("in use by %d container(s), use --force to remove them", len(users))
	case force:
		if warnings := a.engine.CleanupFailedSpawn(ctx, name, ""); len(warnings) > 0 {
			return errors.New(warnings[0])
		}
	default:
		if err := a.volumes.Remove(ctx, name, false); err != nil {
			return err
		}
	}

	if rec, err := a.store.FindByVolume(name); err == nil {
		if err := a.store.Delete(rec.ID); err != nil {
			logger.Warn("could not delete spawn record", "id", rec.ID, "error", err)
		}
	}
	return nil
}

func volumeRows(vols []volume.ManagedVolume, store *workspace.Store) [][]string {
	rows := make([][]string, 0, len(vols))
	for _, v := range vols {
		created := "-"
		if !v.CreatedAt.IsZero() {
			created = v.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		source := "-"
		if rec, err := store.FindByVolume(v.Name); err == nil {
			source = rec.Source
		}
		rows = append(rows, []string{v.Name, v.Project, created, source})
	}
	return rows
}
