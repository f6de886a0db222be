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
	"errors"
	"time"
)

// Domain errors
var (
	ErrPermissionNotFound  = errors.New("permission not found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrDuplicateName       = errors.New("role name already exists")
	ErrAlreadyAssigned     = errors.New("user already has this role")
	ErrNotAssigned         = errors.New("user does not have this role")
	ErrSystemRoleImmutable = errors.New("system role cannot be modified")
)

// Tier is the explicit power ranking among roles. The portal's rules about
// who may grant or revoke which roles branch on this value, never on role
// name strings.
type Tier int

const (
	// TierStandard covers every ordinary role. Standard roles may be freely
	// assigned and revoked by any actor holding the base assignment permission.
	TierStandard Tier = iota

	// TierElevated is the administrator tier. Elevated actors manage standard
	// roles but can never grant or revoke elevated or top roles, including
	// on themselves.
	TierElevated

	// TierTop is the super-admin tier. Top actors bypass permission gates
	// entirely and may manage roles at every tier.
	TierTop
)

// String returns the tier name used in logs and API payloads.
func (t Tier) String() string {
	switch t {
	case TierTop:
		return "top"
	case TierElevated:
		return "elevated"
	default:
		return "standard"
	}
}

// AtLeast reports whether t is as powerful as other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// TierForRole computes the tier for a role at creation time. The canonical
// names rank first; any other system-flagged role ranks top so a mislabeled
// row fails closed. Every later check branches on the stored enum alone.
func TierForRole(name string, isSystem bool) Tier {
	switch {
	case name == RoleSuperAdmin:
		return TierTop
	case name == RoleAdmin:
		return TierElevated
	case isSystem:
		return TierTop
	default:
		return TierStandard
	}
}

// Permission is a single named capability. Names are dotted, globally unique
// and never mutated once referenced by a role; a rename is a new permission.
type Permission struct {
	ID          string
	Name        string
	DisplayName string
	Description string
	Group       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Role is a named bundle of permissions with a cosmetic color and a
// protection flag. System roles are only mutable through the bootstrap path.
type Role struct {
	ID          string
	Name        string
	DisplayName string
	Description string
	Color       string
	IsSystem    bool
	Tier        Tier
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// HasPermission checks if the role carries a specific permission name.
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// PermissionNames returns the role's permission names in catalog order.
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// Assignment represents a role granted to a user.
type Assignment struct {
	ID        string
	UserID    string
	RoleID    string
	GrantedAt time.Time
	GrantedBy string
}

// PermissionRepository defines the interface for the permission catalog.
type PermissionRepository interface {
	// Create inserts a new permission (provisioning/seed path only)
	Create(ctx context.Context, permission *Permission) error

	// GetByName retrieves a permission by unique name
	GetByName(ctx context.Context, name string) (*Permission, error)

	// FindByNames retrieves permissions for the given names; missing names
	// are reported by the caller, not silently dropped
	FindByNames(ctx context.Context, names []string) ([]*Permission, error)

	// List retrieves the full catalog, grouped ordering preserved
	List(ctx context.Context) ([]*Permission, error)

	// Delete soft-deletes a permission
	Delete(ctx context.Context, id string) error
}

// RoleRepository defines the interface for role persistence.
type RoleRepository interface {
	// Create inserts a new role with its permission set
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role (with permissions) by ID
	GetByID(ctx context.Context, id string) (*Role, error)

	// GetByName retrieves a non-deleted role by unique name
	GetByName(ctx context.Context, name string) (*Role, error)

	// NameExists reports whether a role name is taken, including soft-deleted
	// rows; deleted roles still reserve their name
	NameExists(ctx context.Context, name string) (bool, error)

	// Update updates role fields (not its permission set)
	Update(ctx context.Context, role *Role) error

	// ReplacePermissions atomically replaces the role's full permission set
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error

	// Delete soft-deletes a role
	Delete(ctx context.Context, id string) error

	// List retrieves all non-deleted roles
	List(ctx context.Context) ([]*Role, error)
}

// AssignmentRepository defines the interface for user-role assignments.
// The backing table carries a unique (user_id, role_id) key: a duplicate
// grant must fail with ErrAlreadyAssigned, never silently succeed.
type AssignmentRepository interface {
	// Grant assigns a role to a user
	Grant(ctx context.Context, assignment *Assignment) error

	// Revoke removes a role from a user
	Revoke(ctx context.Context, userID, roleID string) error

	// ReplaceForUser atomically replaces the user's entire role set
	ReplaceForUser(ctx context.Context, userID string, assignments []*Assignment) error

	// ListForUser retrieves all assignments for a user
	ListForUser(ctx context.Context, userID string) ([]*Assignment, error)

	// RolesForUser retrieves the user's roles with permissions loaded
	RolesForUser(ctx context.Context, userID string) ([]*Role, error)

	// AnyAtTier reports whether any user holds a role at the given tier;
	// used by bootstrap to detect a first run
	AnyAtTier(ctx context.Context, tier Tier) (bool, error)
}
