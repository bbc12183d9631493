package main

import (
	"context"

	"github.com/spf13/cobra"

	"userrealm/internal/app/bootstrap"
)

var migrateSkipSeed bool

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the user store schema and seed the admin principals",
		Long: `The migrate command applies the embedded schema to every configured
data source, then creates the admin group and, when the realm file carries
admin_password, the admin user.

Example:
  POSTGRES_DSN=postgres://... realmctl migrate
  realmctl migrate --skip-seed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, runMigrate)
		},
	}
	cmd.Flags().BoolVar(&migrateSkipSeed, "skip-seed", false, "Only apply the schema")
	rootCmd.AddCommand(cmd)
}

func runMigrate(ctx context.Context, runtime *bootstrap.Runtime) error {
	if err := runtime.Migrate(ctx); err != nil {
		return err
	}
	if !migrateSkipSeed {
		if err := runtime.Seed(ctx); err != nil {
			return err
		}
	}
	printInfo("schema applied to %v\n", runtime.Sources.Names())
	return nil
}
