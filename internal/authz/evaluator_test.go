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

package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/authz"
	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

var (
	superAdminRole = &rbac.Role{
		ID:       "role-super",
		Name:     rbac.RoleSuperAdmin,
		IsSystem: true,
		Tier:     rbac.TierTop,
	}
	adminRole = &rbac.Role{
		ID:       "role-admin",
		Name:     rbac.RoleAdmin,
		IsSystem: true,
		Tier:     rbac.TierElevated,
		Permissions: []rbac.Permission{
			{Name: rbac.PermUserRolesAssign},
			{Name: rbac.PermUserRolesRemove},
			{Name: rbac.PermUserRolesSync},
			{Name: rbac.PermRolesUpdate},
			{Name: rbac.PermRolesDelete},
			{Name: rbac.PermRolesAssignPermissions},
			{Name: rbac.PermUsersView},
		},
	}
	managerRole = &rbac.Role{
		ID:   "role-manager",
		Name: rbac.RoleManager,
		Tier: rbac.TierStandard,
		Permissions: []rbac.Permission{
			{Name: rbac.PermUsersView},
			{Name: rbac.PermContentView},
		},
	}
	viewerRole = &rbac.Role{
		ID:   "role-viewer",
		Name: rbac.RoleViewer,
		Tier: rbac.TierStandard,
		Permissions: []rbac.Permission{
			{Name: rbac.PermUsersView},
		},
	}
)

func activeUser(id string) *identity.User {
	now := time.Now()
	return &identity.User{
		ID:              id,
		Name:            "Test User",
		Email:           id + "@example.com",
		TermsAcceptedAt: &now,
	}
}

func newEvaluator() *authz.Evaluator {
	return authz.NewEvaluator(audit.NewSlogLogger())
}

func TestEvaluator_Check_Unauthenticated(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	for _, ident := range []*identity.Identity{nil, identity.Anonymous()} {
		d := e.Check(ctx, ident, rbac.PermUsersView)
		if d.Allowed {
			t.Fatal("anonymous identity must be denied")
		}
		if d.Reason != authz.ReasonUnauthenticated {
			t.Errorf("reason = %q, want unauthenticated", d.Reason)
		}
	}
}

func TestEvaluator_Check_MissingPermission(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	ident := identity.NewIdentity(activeUser("u1"), []*rbac.Role{viewerRole})

	d := e.Check(ctx, ident, rbac.PermUsersDelete)
	if d.Allowed {
		t.Fatal("viewer must not delete users")
	}
	if d.Reason != authz.ReasonMissingPermission {
		t.Errorf("reason = %q, want missing_permission", d.Reason)
	}
	if d.Permission != rbac.PermUsersDelete {
		t.Errorf("denial must name the missing permission, got %q", d.Permission)
	}
}

func TestEvaluator_Check_GrantedPermission(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	ident := identity.NewIdentity(activeUser("u1"), []*rbac.Role{viewerRole})

	if d := e.Check(ctx, ident, rbac.PermUsersView); !d.Allowed {
		t.Errorf("viewer should view users, denied with %q", d.Reason)
	}
}

func TestEvaluator_Check_TopTierBypassesEverything(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	ident := identity.NewIdentity(activeUser("u1"), []*rbac.Role{superAdminRole})

	// The super admin role carries no explicit permissions, including names
	// that are not in the catalog at all.
	for _, perm := range []string{rbac.PermUsersDelete, rbac.PermSettingsManage, "future.unknown"} {
		if d := e.Check(ctx, ident, perm); !d.Allowed {
			t.Errorf("top tier denied %q with %q", perm, d.Reason)
		}
	}
}

func TestEvaluator_Check_RestrictedStateDeniesAllGates(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	// Invited user with a temporary password, holding the admin role.
	invited := activeUser("u1")
	invited.TempPassword = true
	ident := identity.NewIdentity(invited, []*rbac.Role{adminRole})

	if d := e.Check(ctx, ident, rbac.PermUsersView); d.Allowed {
		t.Error("restricted identity must fail every gate check")
	}

	// Same for pending terms, even at top tier.
	pending := &identity.User{ID: "u2", Email: "u2@example.com"}
	top := identity.NewIdentity(pending, []*rbac.Role{superAdminRole})
	if d := e.Check(ctx, top, rbac.PermUsersView); d.Allowed {
		t.Error("pending-terms identity must fail gate checks even at top tier")
	}
}

func TestEvaluator_RoleAction_ElevatedCannotTouchElevatedOrTop(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	admin := identity.NewIdentity(activeUser("admin-1"), []*rbac.Role{adminRole})

	for _, action := range []authz.RoleAction{authz.ActionAssign, authz.ActionRemove, authz.ActionSync} {
		for _, target := range []*rbac.Role{adminRole, superAdminRole} {
			d := e.CheckRoleAction(ctx, admin, action, target)
			if d.Allowed {
				t.Fatalf("elevated actor allowed %s on %s", action, target.Name)
			}
			if d.Reason != authz.ReasonTierViolation {
				t.Errorf("%s on %s: reason = %q, want tier_violation", action, target.Name, d.Reason)
			}
		}
	}
}

func TestEvaluator_RoleAction_SelfElevationBlocked(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	// An admin granting the admin role to anyone, including themselves, is
	// the same tier violation.
	admin := identity.NewIdentity(activeUser("admin-1"), []*rbac.Role{adminRole})
	d := e.CheckRoleAction(ctx, admin, authz.ActionAssign, adminRole)
	if d.Allowed || d.Reason != authz.ReasonTierViolation {
		t.Errorf("self-elevation: allowed=%v reason=%q, want tier_violation", d.Allowed, d.Reason)
	}
}

func TestEvaluator_RoleAction_ElevatedManagesStandard(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	admin := identity.NewIdentity(activeUser("admin-1"), []*rbac.Role{adminRole})

	for _, action := range []authz.RoleAction{authz.ActionAssign, authz.ActionRemove, authz.ActionSync} {
		if d := e.CheckRoleAction(ctx, admin, action, managerRole); !d.Allowed {
			t.Errorf("elevated actor denied %s on standard role with %q", action, d.Reason)
		}
	}
}

func TestEvaluator_RoleAction_TopManagesAnyTier(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	top := identity.NewIdentity(activeUser("root-1"), []*rbac.Role{superAdminRole})

	for _, target := range []*rbac.Role{managerRole, adminRole, superAdminRole} {
		if d := e.CheckRoleAction(ctx, top, authz.ActionAssign, target); !d.Allowed {
			t.Errorf("top actor denied assign on %s with %q", target.Name, d.Reason)
		}
	}
}

func TestEvaluator_RoleAction_SystemRolesImmutableEvenForTop(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	top := identity.NewIdentity(activeUser("root-1"), []*rbac.Role{superAdminRole})

	for _, action := range []authz.RoleAction{authz.ActionUpdate, authz.ActionDelete, authz.ActionSyncPermissions} {
		d := e.CheckRoleAction(ctx, top, action, adminRole)
		if d.Allowed {
			t.Fatalf("top actor allowed %s on system role", action)
		}
		if d.Reason != authz.ReasonSystemRoleImmutable {
			t.Errorf("%s: reason = %q, want system_role_immutable", action, d.Reason)
		}
	}
}

func TestEvaluator_RoleAction_MutatingCustomRoles(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	admin := identity.NewIdentity(activeUser("admin-1"), []*rbac.Role{adminRole})

	custom := &rbac.Role{ID: "role-custom", Name: "editor", Tier: rbac.TierStandard}
	for _, action := range []authz.RoleAction{authz.ActionUpdate, authz.ActionDelete, authz.ActionSyncPermissions} {
		if d := e.CheckRoleAction(ctx, admin, action, custom); !d.Allowed {
			t.Errorf("elevated actor denied %s on custom role with %q", action, d.Reason)
		}
	}
}

func TestEvaluator_RoleSync_OneBadRoleDeniesAll(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	admin := identity.NewIdentity(activeUser("admin-1"), []*rbac.Role{adminRole})

	d := e.CheckRoleSync(ctx, admin, []*rbac.Role{managerRole, adminRole})
	if d.Allowed {
		t.Fatal("sync containing an elevated role must be denied for elevated actors")
	}
	if d.Reason != authz.ReasonTierViolation {
		t.Errorf("reason = %q, want tier_violation", d.Reason)
	}

	if d := e.CheckRoleSync(ctx, admin, []*rbac.Role{managerRole, viewerRole}); !d.Allowed {
		t.Errorf("all-standard sync denied with %q", d.Reason)
	}
}

func TestEvaluator_RoleSync_EmptyStillNeedsPermission(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	viewer := identity.NewIdentity(activeUser("viewer-1"), []*rbac.Role{viewerRole})
	if d := e.CheckRoleSync(ctx, viewer, nil); d.Allowed {
		t.Error("empty sync must still require the base sync permission")
	}

	admin := identity.NewIdentity(activeUser("admin-1"), []*rbac.Role{adminRole})
	if d := e.CheckRoleSync(ctx, admin, nil); !d.Allowed {
		t.Errorf("empty sync denied for admin with %q", d.Reason)
	}
}
