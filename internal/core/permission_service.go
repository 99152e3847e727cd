package core

import (
	"context"
	"errors"
	"fmt"

	"docadmin-backend-go/internal/db"
	"docadmin-backend-go/internal/models"
)

// Role-management errors.
var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrCannotDeleteAdmin = errors.New("the admin role cannot be deleted")
)

// permissionService implements PermissionService.
type permissionService struct {
	roleRepo    db.RoleRepository
	defaultRole string
}

// NewPermissionService creates a PermissionService. defaultRole is the role
// name a user falls back to when they have no assignment.
func NewPermissionService(roleRepo db.RoleRepository, defaultRole string) PermissionService {
	return &permissionService{roleRepo: roleRepo, defaultRole: defaultRole}
}

// Resolve maps a user to their capability set: assigned role name (or the
// configured default), then that role's stored permissions. A missing role
// document yields all-false permissions, except that the role named "admin"
// always grants every capability even when its document is missing or
// corrupt.
func (s *permissionService) Resolve(ctx context.Context, userID string) (models.Permissions, error) {
	roleName := s.defaultRole

	record, err := s.roleRepo.GetUserRecord(ctx, userID)
	switch {
	case err == nil && record.Role != "":
		roleName = record.Role
	case err != nil && !errors.Is(err, db.ErrNotFound):
		return models.Permissions{}, fmt.Errorf("failed to resolve role for user %q: %w", userID, err)
	}

	if roleName == models.AdminRoleName {
		return models.AllPermissions(), nil
	}

	role, err := s.roleRepo.GetRole(ctx, roleName)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Permissions{}, nil
		}
		return models.Permissions{}, fmt.Errorf("failed to load role %q: %w", roleName, err)
	}
	return role.Permissions, nil
}

func (s *permissionService) EnsureUser(ctx context.Context, userID, email string) (*models.UserRecord, error) {
	record, err := s.roleRepo.GetUserRecord(ctx, userID)
	if err == nil {
		if record.Email == email {
			return record, nil
		}
		record.Email = email
	} else if errors.Is(err, db.ErrNotFound) {
		record = &models.UserRecord{ID: userID, Email: email}
	} else {
		return nil, fmt.Errorf("failed to look up user %q: %w", userID, err)
	}

	if err := s.roleRepo.SetUserRecord(ctx, *record); err != nil {
		return nil, fmt.Errorf("failed to persist user record %q: %w", userID, err)
	}
	return record, nil
}

func (s *permissionService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.roleRepo.ListRoles(ctx)
}

func (s *permissionService) UpsertRole(ctx context.Context, actor Actor, role models.Role) error {
	if err := s.requireManageRoles(ctx, actor); err != nil {
		return err
	}
	if role.Name == "" {
		return errors.New("role name cannot be empty")
	}
	return s.roleRepo.SetRole(ctx, role)
}

func (s *permissionService) DeleteRole(ctx context.Context, actor Actor, name string) error {
	if err := s.requireManageRoles(ctx, actor); err != nil {
		return err
	}
	if name == models.AdminRoleName {
		return ErrCannotDeleteAdmin
	}
	return s.roleRepo.DeleteRole(ctx, name)
}

func (s *permissionService) AssignRole(ctx context.Context, actor Actor, userID, roleName string) error {
	if err := s.requireManageRoles(ctx, actor); err != nil {
		return err
	}
	// The target role must exist, except for admin which is valid by name.
	if roleName != models.AdminRoleName {
		if _, err := s.roleRepo.GetRole(ctx, roleName); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("%w: %q", ErrRoleNotFound, roleName)
			}
			return fmt.Errorf("failed to verify role %q: %w", roleName, err)
		}
	}

	record, err := s.roleRepo.GetUserRecord(ctx, userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to look up user %q: %w", userID, err)
		}
		record = &models.UserRecord{ID: userID}
	}
	record.Role = roleName
	return s.roleRepo.SetUserRecord(ctx, *record)
}

// requireManageRoles re-checks the actor's capabilities immediately before a
// role mutation; client-side gating is advisory only.
func (s *permissionService) requireManageRoles(ctx context.Context, actor Actor) error {
	perms, err := s.Resolve(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !perms.CanManageRoles {
		return fmt.Errorf("%w: managing roles requires the canManageRoles capability", ErrPermissionDenied)
	}
	return nil
}
