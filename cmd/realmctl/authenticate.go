package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"userrealm/internal/app/bootstrap"
)

var authPassword string

func init() {
	cmd := &cobra.Command{
		Use:   "authenticate <username>",
		Short: "Check a password against the user store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				ok, err := runtime.Module.Service.Authenticate(ctx, args[0], authPassword)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(map[string]any{"username": args[0], "authenticated": ok})
				}
				if !ok {
					return fmt.Errorf("authentication failed for %s", args[0])
				}
				printInfo("authenticated %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&authPassword, "password", "", "Password to check")
	_ = cmd.MarkFlagRequired("password")
	rootCmd.AddCommand(cmd)
}
