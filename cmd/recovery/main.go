// Package main provides the recovery CLI for listing, inspecting and replaying
// deletion backup artifacts.
package main

import (
	"context"
	"fmt"
	"os"

	"event-deletion-be/internal/bootstrap"
	"event-deletion-be/internal/config"
	"event-deletion-be/pkg/database"
	"event-deletion-be/pkg/deletion/recovery"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// recoveryAPI is satisfied by *recovery.Service
type recoveryAPI interface {
	List(ctx context.Context) ([]recovery.Summary, error)
	Details(ctx context.Context, id string) (*recovery.Details, error)
	Restore(ctx context.Context, id string, opts recovery.RestoreOptions) (*recovery.RestoreResult, error)
	Delete(ctx context.Context, id string) error
}

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	failColor  = color.New(color.FgRed)
	mutedColor = color.New(color.FgHiBlack)
	boldColor  = color.New(color.Bold)
)

type cli struct {
	jsonOutput bool
	open       func() (recoveryAPI, error)
	svc        recoveryAPI
}

func newRootCmd(open func() (recoveryAPI, error)) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "recovery",
		Short: "Inspect and restore deletion backups",
		Long: `recovery works on the backup artifacts written before every event deletion.

Examples:
  recovery list                                   # List all backups
  recovery details 3f0c...                        # Show counts and sample records
  recovery restore 3f0c... --dry-run              # Count what a restore would write
  recovery restore 3f0c... --new-id auto          # Restore under a fresh event id
  recovery delete 3f0c... --yes                   # Remove an artifact for good`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.svc != nil {
				return nil
			}
			svc, err := c.open()
			if err != nil {
				return err
			}
			c.svc = svc
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(c.listCmd())
	root.AddCommand(c.detailsCmd())
	root.AddCommand(c.restoreCmd())
	root.AddCommand(c.deleteCmd())
	return root
}

func openFromEnv() (recoveryAPI, error) {
	cfg := config.Load()
	db, err := database.Open(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	svc, _, err := bootstrap.NewRecoveryService(db, cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		failColor.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
