package application

import (
	"context"
	"sort"
	"strings"

	"userrealm/contexts/identity-access/userstore-service/application/listeners"
	"userrealm/contexts/identity-access/userstore-service/domain/entities"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

// AddGroup creates a group with an initial user list. The everyone group is
// implicit and cannot be created.
func (s Service) AddGroup(ctx context.Context, name string, users []string) (entities.Group, error) {
	name = strings.TrimSpace(name)
	if !s.Policy.validGroupName(name) {
		return entities.Group{}, s.fail(ctx, ports.OpAddGroup, name, domainerrors.ErrInvalidGroupName)
	}
	if s.isEveryone(name) {
		return entities.Group{}, s.fail(ctx, ports.OpAddGroup, name, domainerrors.ErrReservedPrincipal)
	}
	members := s.normalizeUsernames(users)

	groupID, err := s.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Group{}, s.fail(ctx, ports.OpAddGroup, name, err)
	}
	group := entities.Group{
		GroupID:   groupID,
		Name:      name,
		TenantID:  s.Policy.cfg.TenantID,
		CreatedAt: s.now(),
	}

	err = s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.Listeners.Groups(ctx, listeners.StagePre, ports.OpAddGroup, func(l ports.GroupListener) error {
			return l.PreAddGroup(ctx, name, members)
		}); err != nil {
			return err
		}
		if err := s.requireUsers(ctx, members); err != nil {
			return err
		}
		if err := s.Repo.AddGroup(ctx, group); err != nil {
			return err
		}
		if len(members) > 0 {
			if err := s.Repo.AddUsersToGroup(ctx, name, members); err != nil {
				return err
			}
		}
		return s.Listeners.Groups(ctx, listeners.StagePost, ports.OpAddGroup, func(l ports.GroupListener) error {
			return l.PostAddGroup(ctx, name, members)
		})
	})
	if err != nil {
		return entities.Group{}, s.fail(ctx, ports.OpAddGroup, name, err)
	}
	s.logDone(ports.OpAddGroup, name)
	return group, nil
}

// DeleteGroup removes a group and its memberships. The admin and everyone
// groups are protected.
func (s Service) DeleteGroup(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.fail(ctx, ports.OpDeleteGroup, name, domainerrors.ErrInvalidGroupName)
	}
	if s.isAdminGroup(name) || s.isEveryone(name) {
		return s.fail(ctx, ports.OpDeleteGroup, name, domainerrors.ErrReservedPrincipal)
	}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireGroups(ctx, []string{name}); err != nil {
			return err
		}
		if err := s.Listeners.Groups(ctx, listeners.StagePre, ports.OpDeleteGroup, func(l ports.GroupListener) error {
			return l.PreDeleteGroup(ctx, name)
		}); err != nil {
			return err
		}
		if err := s.Repo.DeleteGroup(ctx, name); err != nil {
			return err
		}
		return s.Listeners.Groups(ctx, listeners.StagePost, ports.OpDeleteGroup, func(l ports.GroupListener) error {
			return l.PostDeleteGroup(ctx, name)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpDeleteGroup, name, err)
	}
	s.logDone(ports.OpDeleteGroup, name)
	return nil
}

// UpdateGroupName renames a group, keeping its memberships.
func (s Service) UpdateGroupName(ctx context.Context, oldName string, newName string) error {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == "" || !s.Policy.validGroupName(newName) {
		return s.fail(ctx, ports.OpUpdateGroupName, oldName, domainerrors.ErrInvalidGroupName)
	}
	if s.isAdminGroup(oldName) || s.isEveryone(oldName) || s.isEveryone(newName) {
		return s.fail(ctx, ports.OpUpdateGroupName, oldName, domainerrors.ErrReservedPrincipal)
	}
	if oldName == newName {
		return nil
	}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireGroups(ctx, []string{oldName}); err != nil {
			return err
		}
		taken, err := s.Repo.GroupExists(ctx, newName)
		if err != nil {
			return err
		}
		if taken {
			return domainerrors.ErrGroupAlreadyExists
		}
		if err := s.Listeners.Groups(ctx, listeners.StagePre, ports.OpUpdateGroupName, func(l ports.GroupListener) error {
			return l.PreUpdateGroupName(ctx, oldName, newName)
		}); err != nil {
			return err
		}
		if err := s.Repo.RenameGroup(ctx, oldName, newName); err != nil {
			return err
		}
		return s.Listeners.Groups(ctx, listeners.StagePost, ports.OpUpdateGroupName, func(l ports.GroupListener) error {
			return l.PostUpdateGroupName(ctx, oldName, newName)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpUpdateGroupName, oldName, err)
	}
	s.logDone(ports.OpUpdateGroupName, newName)
	return nil
}

// UpdateUserListOfGroup removes and adds members of one group.
func (s Service) UpdateUserListOfGroup(ctx context.Context, group string, deletedUsers []string, addedUsers []string) error {
	group = strings.TrimSpace(group)
	if group == "" {
		return s.fail(ctx, ports.OpUpdateUserListOfGroup, group, domainerrors.ErrInvalidGroupName)
	}
	if s.isEveryone(group) {
		return s.fail(ctx, ports.OpUpdateUserListOfGroup, group, domainerrors.ErrReservedPrincipal)
	}
	change := ports.GroupMembersChange{
		Group:        group,
		DeletedUsers: s.normalizeUsernames(deletedUsers),
		AddedUsers:   s.normalizeUsernames(addedUsers),
	}
	if s.isAdminGroup(group) && contains(change.DeletedUsers, s.normalizeUsername(s.Policy.cfg.AdminUser)) {
		return s.fail(ctx, ports.OpUpdateUserListOfGroup, group, domainerrors.ErrReservedPrincipal)
	}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireGroups(ctx, []string{group}); err != nil {
			return err
		}
		if err := s.requireUsers(ctx, change.AddedUsers); err != nil {
			return err
		}
		if err := s.Listeners.Groups(ctx, listeners.StagePre, ports.OpUpdateUserListOfGroup, func(l ports.GroupListener) error {
			return l.PreUpdateUserListOfGroup(ctx, change)
		}); err != nil {
			return err
		}
		if len(change.DeletedUsers) > 0 {
			if err := s.Repo.RemoveUsersFromGroup(ctx, group, change.DeletedUsers); err != nil {
				return err
			}
		}
		if len(change.AddedUsers) > 0 {
			if err := s.Repo.AddUsersToGroup(ctx, group, change.AddedUsers); err != nil {
				return err
			}
		}
		return s.Listeners.Groups(ctx, listeners.StagePost, ports.OpUpdateUserListOfGroup, func(l ports.GroupListener) error {
			return l.PostUpdateUserListOfGroup(ctx, change)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpUpdateUserListOfGroup, group, err)
	}
	s.logDone(ports.OpUpdateUserListOfGroup, group)
	return nil
}

// UpdateGroupListOfUser removes and adds groups of one user. The everyone
// group is ignored on both sides.
func (s Service) UpdateGroupListOfUser(ctx context.Context, username string, deletedGroups []string, addedGroups []string) error {
	username = s.normalizeUsername(username)
	if username == "" {
		return s.fail(ctx, ports.OpUpdateGroupListOfUser, username, domainerrors.ErrInvalidUsername)
	}
	change := ports.UserGroupsChange{
		Username:      username,
		DeletedGroups: s.normalizeGroups(deletedGroups),
		AddedGroups:   s.normalizeGroups(addedGroups),
	}
	if s.isAdminUser(username) && contains(change.DeletedGroups, s.Policy.cfg.AdminGroup) {
		return s.fail(ctx, ports.OpUpdateGroupListOfUser, username, domainerrors.ErrReservedPrincipal)
	}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, username); err != nil {
			return err
		}
		if err := s.requireGroups(ctx, change.AddedGroups); err != nil {
			return err
		}
		if err := s.Listeners.Groups(ctx, listeners.StagePre, ports.OpUpdateGroupListOfUser, func(l ports.GroupListener) error {
			return l.PreUpdateGroupListOfUser(ctx, change)
		}); err != nil {
			return err
		}
		if len(change.DeletedGroups) > 0 {
			if err := s.Repo.RemoveGroupsFromUser(ctx, username, change.DeletedGroups); err != nil {
				return err
			}
		}
		if len(change.AddedGroups) > 0 {
			if err := s.Repo.AddGroupsToUser(ctx, username, change.AddedGroups); err != nil {
				return err
			}
		}
		return s.Listeners.Groups(ctx, listeners.StagePost, ports.OpUpdateGroupListOfUser, func(l ports.GroupListener) error {
			return l.PostUpdateGroupListOfUser(ctx, change)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpUpdateGroupListOfUser, username, err)
	}
	s.logDone(ports.OpUpdateGroupListOfUser, username)
	return nil
}

func (s Service) IsExistingGroup(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	if s.isEveryone(name) {
		return true, nil
	}
	return s.Repo.GroupExists(ctx, name)
}

// ListGroups returns stored group names matching filter ('*' wildcard).
func (s Service) ListGroups(ctx context.Context, filter string, limit int) ([]string, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = "*"
	}
	return s.Repo.ListGroups(ctx, filter, s.listLimit(limit, s.Policy.cfg.MaxGroupListLength))
}

// GetGroupListOfUser returns the user's groups, always including the
// everyone group.
func (s Service) GetGroupListOfUser(ctx context.Context, username string) ([]string, error) {
	username = s.normalizeUsername(username)
	if username == "" {
		return nil, domainerrors.ErrInvalidUsername
	}
	if err := s.requireUser(ctx, username); err != nil {
		return nil, err
	}
	groups, err := s.Repo.ListGroupsOfUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if everyone := s.Policy.cfg.EveryoneGroup; everyone != "" && !contains(groups, everyone) {
		groups = append(groups, everyone)
	}
	sort.Strings(groups)
	return groups, nil
}

// GetUserListOfGroup returns the members of a group. Every user is a member
// of the everyone group.
func (s Service) GetUserListOfGroup(ctx context.Context, group string) ([]string, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return nil, domainerrors.ErrInvalidGroupName
	}
	if s.isEveryone(group) {
		return s.Repo.ListUsers(ctx, "*", s.Policy.cfg.MaxUserListLength)
	}
	if err := s.requireGroups(ctx, []string{group}); err != nil {
		return nil, err
	}
	users, err := s.Repo.ListUsersOfGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}
