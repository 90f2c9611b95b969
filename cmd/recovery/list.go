package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"event-deletion-be/pkg/deletion/recovery"

	"github.com/spf13/cobra"
)

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backup artifacts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := c.svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			printSummaries(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
}

func printSummaries(w io.Writer, summaries []recovery.Summary) {
	if len(summaries) == 0 {
		mutedColor.Fprintln(w, "No backups found")
		return
	}

	boldColor.Fprintf(w, "%d backup(s)\n\n", len(summaries))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVENT\tCREATED\tRECORDS\tSIZE")
	for _, s := range summaries {
		if s.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t%s\t-\t%d\n", s.ID, failColor.Sprint("unreadable: "+s.Error), s.CreatedAt.UTC().Format(time.RFC3339), s.SizeBytes)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", s.ID, s.EventName, s.CreatedAt.UTC().Format(time.RFC3339), s.TotalRecords, s.SizeBytes)
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
