package main

import (
	"context"

	"github.com/spf13/cobra"

	httptransport "userrealm/contexts/identity-access/userstore-service/transport/http"
	"userrealm/internal/app/bootstrap"
)

var (
	userPassword string
	userGroups   []string
	userClaims   map[string]string
	userProfile  string
	userFilter   string
	userLimit    int
)

func init() {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a user",
		Long: `Example:
  realmctl user add alice --password s3cret! --group staff
  realmctl user add bob --password s3cret! --claim http://wso2.org/claims/email=bob@example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				user, err := runtime.Module.Handler.AddUserHandler(ctx, actorID, httptransport.AddUserRequest{
					Username: args[0],
					Password: userPassword,
					Groups:   userGroups,
					Claims:   userClaims,
					Profile:  userProfile,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(user)
				}
				printInfo("user %s added (%s)\n", user.Username, user.UserID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&userPassword, "password", "", "Initial password")
	add.Flags().StringSliceVar(&userGroups, "group", nil, "Group to join (repeatable)")
	add.Flags().StringToStringVar(&userClaims, "claim", nil, "Claim value as uri=value (repeatable)")
	add.Flags().StringVar(&userProfile, "profile", "", "Claim profile")
	_ = add.MarkFlagRequired("password")

	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				if err := runtime.Module.Service.DeleteUser(ctx, args[0]); err != nil {
					return err
				}
				printInfo("user %s deleted\n", args[0])
				return nil
			})
		},
	}

	passwd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				if err := runtime.Module.Service.UpdateCredentialByAdmin(ctx, args[0], userPassword); err != nil {
					return err
				}
				printInfo("password of %s updated\n", args[0])
				return nil
			})
		},
	}
	passwd.Flags().StringVar(&userPassword, "password", "", "New password")
	_ = passwd.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users matching a '*' wildcard filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				names, err := runtime.Module.Service.ListUsers(ctx, userFilter, userLimit)
				if err != nil {
					return err
				}
				return printList("users", names)
			})
		},
	}
	list.Flags().StringVar(&userFilter, "filter", "*", "Name filter")
	list.Flags().IntVar(&userLimit, "limit", 0, "Maximum names returned (0 uses the realm limit)")

	groups := &cobra.Command{
		Use:   "groups <username>",
		Short: "Show the groups of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				names, err := runtime.Module.Service.GetGroupListOfUser(ctx, args[0])
				if err != nil {
					return err
				}
				return printList("groups", names)
			})
		},
	}

	userCmd.AddCommand(add, del, passwd, list, groups)
	rootCmd.AddCommand(userCmd)
}
