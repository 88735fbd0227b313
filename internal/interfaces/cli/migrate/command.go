package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ippgi/ippgi-prices/internal/infrastructure/migration"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/bootstrap"
)

var (
	env   string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back and inspect the embedded goose migrations.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newVersionsCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), bootstrap.Options{Env: env})
			if err != nil {
				return err
			}
			defer app.Close()

			return migration.NewMigrator(app.Logger).Up(app.DB)
		},
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("steps must be at least 1")
			}
			app, err := bootstrap.New(cmd.Context(), bootstrap.Options{Env: env})
			if err != nil {
				return err
			}
			defer app.Close()

			return migration.NewMigrator(app.Logger).Down(app.DB, steps)
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), bootstrap.Options{Env: env})
			if err != nil {
				return err
			}
			defer app.Close()

			return migration.NewMigrator(app.Logger).Status(app.DB)
		},
	}
}

func newVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the embedded migration versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := migration.Versions()
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}
