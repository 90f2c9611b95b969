package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"event-deletion-be/pkg/deletion/recovery"

	"github.com/spf13/cobra"
)

func (c *cli) detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <backup-id>",
		Short: "Show per-collection counts and a sample record of each collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := c.svc.Details(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), details)
			}
			printDetails(cmd.OutOrStdout(), details)
			return nil
		},
	}
}

func printDetails(w io.Writer, d *recovery.Details) {
	boldColor.Fprintf(w, "Backup %s\n", d.ID)
	fmt.Fprintf(w, "  Event:    %s (%s)\n", d.EventName, d.EventID)
	fmt.Fprintf(w, "  Created:  %s\n", d.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  Version:  %d\n", d.Version)
	fmt.Fprintf(w, "  Records:  %d\n\n", d.TotalRecords)

	collections := append([]string(nil), d.Collections...)
	sort.Strings(collections)
	for _, name := range collections {
		fmt.Fprintf(w, "  %-28s %d\n", name, d.Counts[name])
		if sample, ok := d.Samples[name]; ok {
			mutedColor.Fprintf(w, "    sample: %v\n", sample)
		}
	}
}
