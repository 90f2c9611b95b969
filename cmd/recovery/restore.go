package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"event-deletion-be/internal/apperror"
	"event-deletion-be/internal/entity"
	"event-deletion-be/pkg/deletion/recovery"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type restoreFlags struct {
	dryRun       bool
	newID        string
	collections  []string
	skipExisting bool
	actor        string
}

func (c *cli) restoreCmd() *cobra.Command {
	var f restoreFlags

	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replay a backup into the database",
		Long: `Replay a backup into the database, collection by collection.

A failing collection does not stop the others. The command exits non-zero
when any collection failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options()
			if err != nil {
				return err
			}

			result, restoreErr := c.svc.Restore(cmd.Context(), args[0], opts)
			var partial *apperror.PartialFailureError
			if restoreErr != nil && !errors.As(restoreErr, &partial) {
				return restoreErr
			}

			if c.jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				printRestore(cmd.OutOrStdout(), result)
			}
			return restoreErr
		},
	}

	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Count what would be written without writing")
	cmd.Flags().StringVar(&f.newID, "new-id", "", `Restore under a new event id ("auto" generates one)`)
	cmd.Flags().StringSliceVar(&f.collections, "collections", nil, "Restore only these collections")
	cmd.Flags().BoolVar(&f.skipExisting, "skip-existing", false, "Leave records that already exist untouched")
	cmd.Flags().StringVar(&f.actor, "actor", "recovery-cli", "Operator recorded in the audit log")
	return cmd
}

func (f restoreFlags) options() (recovery.RestoreOptions, error) {
	opts := recovery.RestoreOptions{
		DryRun:       f.dryRun,
		Collections:  f.collections,
		SkipExisting: f.skipExisting,
		Actor:        entity.Actor{ID: f.actor, Name: f.actor, Role: "operator"},
	}

	switch f.newID {
	case "":
	case "auto":
		id := uuid.New()
		opts.NewEventID = &id
	default:
		id, err := uuid.Parse(f.newID)
		if err != nil {
			return opts, fmt.Errorf("invalid --new-id %q: %w", f.newID, err)
		}
		opts.NewEventID = &id
	}
	return opts, nil
}

func printRestore(w io.Writer, r *recovery.RestoreResult) {
	if r.DryRun {
		warnColor.Fprintln(w, "Dry run, nothing was written")
	}
	boldColor.Fprintf(w, "Backup %s -> event %s\n", r.ArtifactID, r.EventID)

	names := make([]string, 0, len(r.PerCollection))
	for name := range r.PerCollection {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-28s %d\n", name, r.PerCollection[name])
	}

	fmt.Fprintf(w, "\nCollections: %d  Restored: %d  Skipped: %d\n", r.CollectionsProcessed, r.RecordsRestored, r.RecordsSkipped)
	if len(r.Errors) == 0 {
		okColor.Fprintln(w, "✓ Restore finished")
		return
	}
	for _, f := range r.Errors {
		failColor.Fprintf(w, "✗ %s: %s\n", f.Collection, f.Error)
	}
}
