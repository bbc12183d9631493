package main

import (
	"context"

	"github.com/spf13/cobra"

	httptransport "userrealm/contexts/identity-access/userstore-service/transport/http"
	"userrealm/internal/app/bootstrap"
)

var (
	groupUsers  []string
	groupAdd    []string
	groupRemove []string
	groupFilter string
	groupLimit  int
)

func init() {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				group, err := runtime.Module.Handler.AddGroupHandler(ctx, actorID, httptransport.AddGroupRequest{
					Name:  args[0],
					Users: groupUsers,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(group)
				}
				printInfo("group %s added (%s)\n", group.Name, group.GroupID)
				return nil
			})
		},
	}
	add.Flags().StringSliceVar(&groupUsers, "user", nil, "Initial member (repeatable)")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				if err := runtime.Module.Service.DeleteGroup(ctx, args[0]); err != nil {
					return err
				}
				printInfo("group %s deleted\n", args[0])
				return nil
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				if err := runtime.Module.Service.UpdateGroupName(ctx, args[0], args[1]); err != nil {
					return err
				}
				printInfo("group %s renamed to %s\n", args[0], args[1])
				return nil
			})
		},
	}

	members := &cobra.Command{
		Use:   "members <name>",
		Short: "Show or edit the members of a group",
		Long: `Without flags the command lists the members.

Example:
  realmctl group members staff
  realmctl group members staff --add alice --remove bob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				service := runtime.Module.Service
				if len(groupAdd) > 0 || len(groupRemove) > 0 {
					if err := service.UpdateUserListOfGroup(ctx, args[0], groupRemove, groupAdd); err != nil {
						return err
					}
				}
				users, err := service.GetUserListOfGroup(ctx, args[0])
				if err != nil {
					return err
				}
				return printList("users", users)
			})
		},
	}
	members.Flags().StringSliceVar(&groupAdd, "add", nil, "User to add (repeatable)")
	members.Flags().StringSliceVar(&groupRemove, "remove", nil, "User to remove (repeatable)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups matching a '*' wildcard filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(ctx context.Context, runtime *bootstrap.Runtime) error {
				names, err := runtime.Module.Service.ListGroups(ctx, groupFilter, groupLimit)
				if err != nil {
					return err
				}
				return printList("groups", names)
			})
		},
	}
	list.Flags().StringVar(&groupFilter, "filter", "*", "Name filter")
	list.Flags().IntVar(&groupLimit, "limit", 0, "Maximum names returned (0 uses the realm limit)")

	groupCmd.AddCommand(add, del, rename, members, list)
	rootCmd.AddCommand(groupCmd)
}
