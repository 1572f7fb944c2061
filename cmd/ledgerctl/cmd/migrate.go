package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply, roll back or inspect schema migrations",
}

func init() {
	migrateCmd.AddCommand(
		migrateAction("up", "Apply all pending migrations", func(cmd *cobra.Command, m migrator) error {
			applied, err := m.Up(cmd.Context())
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return err
		}),
		migrateAction("down", "Roll back the latest migration", func(cmd *cobra.Command, m migrator) error {
			name, err := m.Down(cmd.Context())
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "rolled back", name)
			}
			return err
		}),
		migrateAction("status", "List applied and pending migrations", func(cmd *cobra.Command, m migrator) error {
			done, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			pending, err := m.Pending(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range done {
				fmt.Fprintln(cmd.OutOrStdout(), "applied ", name)
			}
			for _, name := range pending {
				fmt.Fprintln(cmd.OutOrStdout(), "pending ", name)
			}
			return nil
		}),
		migrateAction("seed", "Load development seed data", func(cmd *cobra.Command, m migrator) error {
			applied, err := m.Seed(cmd.Context())
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "seeded", name)
			}
			return err
		}),
	)
}

type migrator interface {
	Up(ctx context.Context) ([]string, error)
	Down(ctx context.Context) (string, error)
	Status(ctx context.Context) ([]string, error)
	Pending(ctx context.Context) ([]string, error)
	Seed(ctx context.Context) ([]string, error)
}

func migrateAction(use, short string, run func(*cobra.Command, migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			m, err := b.Migrator()
			if err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			if err := run(cmd, m); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			return nil
		},
	}
}
