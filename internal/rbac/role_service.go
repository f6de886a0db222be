// Copyright 2026 The Pulseboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/id"
)

// RoleService provides the role registry business logic. Actor-independent
// invariants (unique names, system-role immutability, all-or-nothing syncs)
// live here; actor-dependent tier rules live in the authz evaluator. The
// seed/bootstrap path writes through the repositories directly and is the
// only way a system role changes.
type RoleService struct {
	roles       RoleRepository
	permissions *PermissionService
	auditLogger audit.Logger
}

// NewRoleService creates a new role registry service
func NewRoleService(roles RoleRepository, permissions *PermissionService, auditLogger audit.Logger) *RoleService {
	return &RoleService{
		roles:       roles,
		permissions: permissions,
		auditLogger: auditLogger,
	}
}

// CreateInput holds the fields for role creation.
type CreateInput struct {
	Name        string
	DisplayName string
	Description string
	Color       string
}

// Create creates a custom role. The tier is computed once here and persisted;
// nothing downstream re-derives it from the name. Soft-deleted roles still
// reserve their name.
func (s *RoleService) Create(ctx context.Context, actorID string, in CreateInput) (*Role, error) {
	taken, err := s.roles.NameExists(ctx, in.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, in.Name)
	}

	now := time.Now()
	role := &Role{
		ID:          id.NewUUIDv7(),
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		Color:       in.Color,
		IsSystem:    false,
		Tier:        TierForRole(in.Name, false),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		ActorID:  actorID,
		Resource: role.Name,
		Metadata: map[string]any{"role_id": role.ID, "tier": role.Tier.String()},
	})

	return role, nil
}

// UpdateInput holds the mutable role fields. The name is immutable once the
// role exists; renames would silently detach every name-based reference.
type UpdateInput struct {
	DisplayName string
	Description string
	Color       string
}

// Update updates a role's cosmetic fields.
func (s *RoleService) Update(ctx context.Context, actorID, roleID string, in UpdateInput) (*Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, ErrSystemRoleImmutable
	}

	role.DisplayName = in.DisplayName
	role.Description = in.Description
	role.Color = in.Color
	role.UpdatedAt = time.Now()

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleUpdated,
		ActorID:  actorID,
		Resource: role.Name,
	})

	return role, nil
}

// SyncPermissions atomically replaces the role's entire permission set. Any
// unknown permission name rejects the whole sync before a single row lands.
func (s *RoleService) SyncPermissions(ctx context.Context, actorID, roleID string, permissionNames []string) (*Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, ErrSystemRoleImmutable
	}

	perms, err := s.permissions.FindByNames(ctx, permissionNames)
	if err != nil {
		return nil, err
	}

	permIDs := make([]string, 0, len(perms))
	for _, p := range perms {
		permIDs = append(permIDs, p.ID)
	}

	if err := s.roles.ReplacePermissions(ctx, roleID, permIDs); err != nil {
		return nil, fmt.Errorf("failed to sync role permissions: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionsSynced,
		ActorID:  actorID,
		Resource: role.Name,
		Metadata: map[string]any{"permission_count": len(permIDs)},
	})

	return s.roles.GetByID(ctx, roleID)
}

// AssignPermission adds a single permission to the role, keeping the rest of
// its set intact.
func (s *RoleService) AssignPermission(ctx context.Context, actorID, roleID, permissionName string) (*Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, ErrSystemRoleImmutable
	}
	if role.HasPermission(permissionName) {
		return role, nil
	}
	return s.syncUnchecked(ctx, actorID, role, append(role.PermissionNames(), permissionName))
}

// RemovePermission removes a single permission from the role.
func (s *RoleService) RemovePermission(ctx context.Context, actorID, roleID, permissionName string) (*Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, ErrSystemRoleImmutable
	}

	names := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		if p.Name != permissionName {
			names = append(names, p.Name)
		}
	}
	return s.syncUnchecked(ctx, actorID, role, names)
}

func (s *RoleService) syncUnchecked(ctx context.Context, actorID string, role *Role, names []string) (*Role, error) {
	perms, err := s.permissions.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	permIDs := make([]string, 0, len(perms))
	for _, p := range perms {
		permIDs = append(permIDs, p.ID)
	}
	if err := s.roles.ReplacePermissions(ctx, role.ID, permIDs); err != nil {
		return nil, fmt.Errorf("failed to update role permissions: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionsSynced,
		ActorID:  actorID,
		Resource: role.Name,
		Metadata: map[string]any{"permission_count": len(permIDs)},
	})

	return s.roles.GetByID(ctx, role.ID)
}

// Delete soft-deletes a role. Deleting a role that is still assigned to users
// is allowed; their effective permissions simply shrink on the next check.
func (s *RoleService) Delete(ctx context.Context, actorID, roleID string) error {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		ActorID:  actorID,
		Resource: role.Name,
	})

	return nil
}

// Get retrieves a role by ID.
func (s *RoleService) Get(ctx context.Context, roleID string) (*Role, error) {
	return s.roles.GetByID(ctx, roleID)
}

// GetByName retrieves a role by unique name.
func (s *RoleService) GetByName(ctx context.Context, name string) (*Role, error) {
	return s.roles.GetByName(ctx, name)
}

// List retrieves all non-deleted roles.
func (s *RoleService) List(ctx context.Context) ([]*Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}
