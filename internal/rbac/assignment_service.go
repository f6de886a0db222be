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
	"sort"
	"time"

	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/id"
)

// AssignmentService manages the many-to-many association between users and
// roles. Duplicate grants are rejected with an explicit signal rather than
// ignored; idempotency is the caller's responsibility.
type AssignmentService struct {
	assignments AssignmentRepository
	roles       RoleRepository
	auditLogger audit.Logger
}

// NewAssignmentService creates a new user-role assignment service
func NewAssignmentService(assignments AssignmentRepository, roles RoleRepository, auditLogger audit.Logger) *AssignmentService {
	return &AssignmentService{
		assignments: assignments,
		roles:       roles,
		auditLogger: auditLogger,
	}
}

// Assign grants a role to a user. Fails with ErrAlreadyAssigned if the pair
// already exists.
func (s *AssignmentService) Assign(ctx context.Context, actorID, userID, roleID string) error {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	assignment := &Assignment{
		ID:        id.NewUUIDv7(),
		UserID:    userID,
		RoleID:    roleID,
		GrantedAt: time.Now(),
		GrantedBy: actorID,
	}

	if err := s.assignments.Grant(ctx, assignment); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		ActorID:  actorID,
		Resource: role.Name,
		Metadata: map[string]any{audit.AttrTargetID: userID},
	})

	return nil
}

// Remove revokes a role from a user. Fails with ErrNotAssigned if the user
// does not hold the role.
func (s *AssignmentService) Remove(ctx context.Context, actorID, userID, roleID string) error {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	if err := s.assignments.Revoke(ctx, userID, roleID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleRevoked,
		ActorID:  actorID,
		Resource: role.Name,
		Metadata: map[string]any{audit.AttrTargetID: userID},
	})

	return nil
}

// SyncAll atomically replaces the user's entire role set. Unknown role IDs
// reject the whole sync. Calling it twice with the same set is a no-op drift.
func (s *AssignmentService) SyncAll(ctx context.Context, actorID, userID string, roleIDs []string) error {
	seen := make(map[string]bool, len(roleIDs))
	assignments := make([]*Assignment, 0, len(roleIDs))
	now := time.Now()

	for _, roleID := range roleIDs {
		if seen[roleID] {
			continue
		}
		seen[roleID] = true

		if _, err := s.roles.GetByID(ctx, roleID); err != nil {
			return err
		}
		assignments = append(assignments, &Assignment{
			ID:        id.NewUUIDv7(),
			UserID:    userID,
			RoleID:    roleID,
			GrantedAt: now,
			GrantedBy: actorID,
		})
	}

	if err := s.assignments.ReplaceForUser(ctx, userID, assignments); err != nil {
		return fmt.Errorf("failed to sync user roles: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRolesSynced,
		ActorID:  actorID,
		Resource: "user_roles",
		Metadata: map[string]any{audit.AttrTargetID: userID, "role_count": len(assignments)},
	})

	return nil
}

// RolesOf retrieves the user's roles with permissions loaded.
func (s *AssignmentService) RolesOf(ctx context.Context, userID string) ([]*Role, error) {
	roles, err := s.assignments.RolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}
	return roles, nil
}

// HasRole reports whether the user holds a role by name.
func (s *AssignmentService) HasRole(ctx context.Context, userID, roleName string) (bool, error) {
	roles, err := s.RolesOf(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

// EffectivePermissions computes the union of permission names across every
// role the user holds. Grants are additive only; there is no explicit deny.
func EffectivePermissions(roles []*Role) []string {
	set := make(map[string]bool)
	for _, role := range roles {
		for _, p := range role.Permissions {
			set[p.Name] = true
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HighestTier returns the most powerful tier among the given roles.
func HighestTier(roles []*Role) Tier {
	highest := TierStandard
	for _, r := range roles {
		if r.Tier > highest {
			highest = r.Tier
		}
	}
	return highest
}
