package main

import (
	"bufio"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Permanently remove a backup artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes {
				warnColor.Fprintf(cmd.OutOrStdout(), "Delete backup %s? This cannot be undone. [y/N]: ", id)
				answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && answer == "" {
					return errors.New("aborted")
				}
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					return errors.New("aborted")
				}
			}

			if err := c.svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "✓ Deleted backup %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
