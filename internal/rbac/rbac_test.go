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

package rbac_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

// MockPermissionRepository is an in-memory permission catalog
type MockPermissionRepository struct {
	perms map[string]*rbac.Permission
	order []string
}

func NewMockPermissionRepository(names ...string) *MockPermissionRepository {
	m := &MockPermissionRepository{perms: make(map[string]*rbac.Permission)}
	for i, name := range names {
		m.perms[name] = &rbac.Permission{
			ID:   fmt.Sprintf("perm-%d", i),
			Name: name,
		}
		m.order = append(m.order, name)
	}
	return m
}

func (m *MockPermissionRepository) Create(ctx context.Context, p *rbac.Permission) error {
	m.perms[p.Name] = p
	m.order = append(m.order, p.Name)
	return nil
}

func (m *MockPermissionRepository) GetByName(ctx context.Context, name string) (*rbac.Permission, error) {
	if p, ok := m.perms[name]; ok {
		return p, nil
	}
	return nil, rbac.ErrPermissionNotFound
}

func (m *MockPermissionRepository) FindByNames(ctx context.Context, names []string) ([]*rbac.Permission, error) {
	var out []*rbac.Permission
	for _, name := range names {
		if p, ok := m.perms[name]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPermissionRepository) List(ctx context.Context) ([]*rbac.Permission, error) {
	out := make([]*rbac.Permission, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.perms[name])
	}
	return out, nil
}

func (m *MockPermissionRepository) Delete(ctx context.Context, id string) error { return nil }

// MockRoleRepository is an in-memory role store. Deleted roles keep their
// name reserved, mirroring the real storage contract.
type MockRoleRepository struct {
	roles   map[string]*rbac.Role
	deleted map[string]bool
	perms   *MockPermissionRepository
}

func NewMockRoleRepository(perms *MockPermissionRepository) *MockRoleRepository {
	return &MockRoleRepository{
		roles:   make(map[string]*rbac.Role),
		deleted: make(map[string]bool),
		perms:   perms,
	}
}

func (m *MockRoleRepository) Create(ctx context.Context, role *rbac.Role) error {
	for _, r := range m.roles {
		if r.Name == role.Name {
			return rbac.ErrDuplicateName
		}
	}
	m.roles[role.ID] = role
	return nil
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id string) (*rbac.Role, error) {
	r, ok := m.roles[id]
	if !ok || r.DeletedAt != nil {
		return nil, rbac.ErrRoleNotFound
	}
	return r, nil
}

func (m *MockRoleRepository) GetByName(ctx context.Context, name string) (*rbac.Role, error) {
	for _, r := range m.roles {
		if r.Name == name && r.DeletedAt == nil {
			return r, nil
		}
	}
	return nil, rbac.ErrRoleNotFound
}

func (m *MockRoleRepository) NameExists(ctx context.Context, name string) (bool, error) {
	if m.deleted[name] {
		return true, nil
	}
	for _, r := range m.roles {
		if r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRoleRepository) Update(ctx context.Context, role *rbac.Role) error {
	if _, ok := m.roles[role.ID]; !ok {
		return rbac.ErrRoleNotFound
	}
	m.roles[role.ID] = role
	return nil
}

func (m *MockRoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	r, ok := m.roles[roleID]
	if !ok {
		return rbac.ErrRoleNotFound
	}
	r.Permissions = nil
	for _, permID := range permissionIDs {
		for _, p := range m.perms.perms {
			if p.ID == permID {
				r.Permissions = append(r.Permissions, *p)
			}
		}
	}
	return nil
}

func (m *MockRoleRepository) Delete(ctx context.Context, id string) error {
	r, ok := m.roles[id]
	if !ok || r.DeletedAt != nil {
		return rbac.ErrRoleNotFound
	}
	now := time.Now()
	r.DeletedAt = &now
	m.deleted[r.Name] = true
	return nil
}

func (m *MockRoleRepository) List(ctx context.Context) ([]*rbac.Role, error) {
	var out []*rbac.Role
	for _, r := range m.roles {
		if r.DeletedAt == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// MockAssignmentRepository is an in-memory user-role assignment store with
// the same duplicate-pair semantics as the real table.
type MockAssignmentRepository struct {
	assignments []*rbac.Assignment
	roles       *MockRoleRepository
}

func NewMockAssignmentRepository(roles *MockRoleRepository) *MockAssignmentRepository {
	return &MockAssignmentRepository{roles: roles}
}

func (m *MockAssignmentRepository) Grant(ctx context.Context, a *rbac.Assignment) error {
	for _, existing := range m.assignments {
		if existing.UserID == a.UserID && existing.RoleID == a.RoleID {
			return rbac.ErrAlreadyAssigned
		}
	}
	m.assignments = append(m.assignments, a)
	return nil
}

func (m *MockAssignmentRepository) Revoke(ctx context.Context, userID, roleID string) error {
	for i, a := range m.assignments {
		if a.UserID == userID && a.RoleID == roleID {
			m.assignments = append(m.assignments[:i], m.assignments[i+1:]...)
			return nil
		}
	}
	return rbac.ErrNotAssigned
}

func (m *MockAssignmentRepository) ReplaceForUser(ctx context.Context, userID string, assignments []*rbac.Assignment) error {
	var kept []*rbac.Assignment
	for _, a := range m.assignments {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	m.assignments = append(kept, assignments...)
	return nil
}

func (m *MockAssignmentRepository) ListForUser(ctx context.Context, userID string) ([]*rbac.Assignment, error) {
	var out []*rbac.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAssignmentRepository) RolesForUser(ctx context.Context, userID string) ([]*rbac.Role, error) {
	var out []*rbac.Role
	for _, a := range m.assignments {
		if a.UserID == userID {
			if r, err := m.roles.GetByID(ctx, a.RoleID); err == nil {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *MockAssignmentRepository) AnyAtTier(ctx context.Context, tier rbac.Tier) (bool, error) {
	for _, a := range m.assignments {
		if r, err := m.roles.GetByID(ctx, a.RoleID); err == nil && r.Tier == tier {
			return true, nil
		}
	}
	return false, nil
}

func newRoleService(t *testing.T) (*rbac.RoleService, *MockRoleRepository, *MockPermissionRepository) {
	t.Helper()
	permRepo := NewMockPermissionRepository(
		rbac.PermUsersView, rbac.PermRolesView, rbac.PermContentView, rbac.PermContentManage,
	)
	roleRepo := NewMockRoleRepository(permRepo)
	svc := rbac.NewRoleService(roleRepo, rbac.NewPermissionService(permRepo), audit.NewSlogLogger())
	return svc, roleRepo, permRepo
}

func TestRoleService_Create_ComputesTier(t *testing.T) {
	svc, _, _ := newRoleService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Editor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.Tier != rbac.TierStandard {
		t.Errorf("custom role tier = %v, want standard", role.Tier)
	}
	if role.IsSystem {
		t.Error("custom role must not be system-flagged")
	}
}

func TestRoleService_Create_DuplicateName(t *testing.T) {
	svc, _, _ := newRoleService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Editor"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Editor Again"})
	if !errors.Is(err, rbac.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRoleService_Create_DeletedRoleReservesName(t *testing.T) {
	svc, _, _ := newRoleService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Editor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, "actor-1", role.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Revived"})
	if !errors.Is(err, rbac.ErrDuplicateName) {
		t.Errorf("deleted role must still reserve its name, got %v", err)
	}
}

func TestRoleService_SystemRoleImmutable(t *testing.T) {
	svc, roleRepo, _ := newRoleService(t)
	ctx := context.Background()

	system := &rbac.Role{
		ID:       "role-admin",
		Name:     rbac.RoleAdmin,
		IsSystem: true,
		Tier:     rbac.TierElevated,
	}
	roleRepo.roles[system.ID] = system

	if _, err := svc.Update(ctx, "actor-1", system.ID, rbac.UpdateInput{DisplayName: "x"}); !errors.Is(err, rbac.ErrSystemRoleImmutable) {
		t.Errorf("Update on system role: expected ErrSystemRoleImmutable, got %v", err)
	}
	if err := svc.Delete(ctx, "actor-1", system.ID); !errors.Is(err, rbac.ErrSystemRoleImmutable) {
		t.Errorf("Delete on system role: expected ErrSystemRoleImmutable, got %v", err)
	}
	if _, err := svc.SyncPermissions(ctx, "actor-1", system.ID, nil); !errors.Is(err, rbac.ErrSystemRoleImmutable) {
		t.Errorf("SyncPermissions on system role: expected ErrSystemRoleImmutable, got %v", err)
	}
}

func TestRoleService_SyncPermissions_UnknownNameRejectsWholeSync(t *testing.T) {
	svc, _, _ := newRoleService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Editor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.SyncPermissions(ctx, "actor-1", role.ID, []string{rbac.PermUsersView, "nope.unknown"})
	if !errors.Is(err, rbac.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}

	// Nothing landed
	got, err := svc.Get(ctx, role.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Permissions) != 0 {
		t.Errorf("partial sync applied: %v", got.PermissionNames())
	}
}

func TestRoleService_SyncPermissions_Replaces(t *testing.T) {
	svc, _, _ := newRoleService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Editor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.SyncPermissions(ctx, "actor-1", role.ID, []string{rbac.PermUsersView, rbac.PermRolesView}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.SyncPermissions(ctx, "actor-1", role.ID, []string{rbac.PermContentView})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Permissions) != 1 || got.Permissions[0].Name != rbac.PermContentView {
		t.Errorf("sync must replace the full set, got %v", got.PermissionNames())
	}
}

func TestRoleService_AssignAndRemovePermission(t *testing.T) {
	svc, _, _ := newRoleService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "actor-1", rbac.CreateInput{Name: "editor", DisplayName: "Editor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SyncPermissions(ctx, "actor-1", role.ID, []string{rbac.PermContentView}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.AssignPermission(ctx, "actor-1", role.ID, rbac.PermContentManage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.HasPermission(rbac.PermContentView) || !got.HasPermission(rbac.PermContentManage) {
		t.Errorf("incremental assign must keep the existing set, got %v", got.PermissionNames())
	}

	// Assigning a permission the role already has is a no-op.
	got, err = svc.AssignPermission(ctx, "actor-1", role.ID, rbac.PermContentManage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Permissions) != 2 {
		t.Errorf("repeated assign must not duplicate, got %v", got.PermissionNames())
	}

	got, err = svc.RemovePermission(ctx, "actor-1", role.ID, rbac.PermContentView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.HasPermission(rbac.PermContentView) || !got.HasPermission(rbac.PermContentManage) {
		t.Errorf("remove must only drop the named permission, got %v", got.PermissionNames())
	}

	if _, err := svc.AssignPermission(ctx, "actor-1", role.ID, "nope.unknown"); !errors.Is(err, rbac.ErrPermissionNotFound) {
		t.Errorf("unknown permission: expected ErrPermissionNotFound, got %v", err)
	}
}

func TestAssignmentService_DuplicateGrant(t *testing.T) {
	permRepo := NewMockPermissionRepository()
	roleRepo := NewMockRoleRepository(permRepo)
	assignRepo := NewMockAssignmentRepository(roleRepo)
	svc := rbac.NewAssignmentService(assignRepo, roleRepo, audit.NewSlogLogger())
	ctx := context.Background()

	roleRepo.roles["role-1"] = &rbac.Role{ID: "role-1", Name: "viewer"}

	if err := svc.Assign(ctx, "actor-1", "user-1", "role-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Assign(ctx, "actor-1", "user-1", "role-1"); !errors.Is(err, rbac.ErrAlreadyAssigned) {
		t.Errorf("expected ErrAlreadyAssigned, got %v", err)
	}
}

func TestAssignmentService_RemoveNotHeld(t *testing.T) {
	permRepo := NewMockPermissionRepository()
	roleRepo := NewMockRoleRepository(permRepo)
	assignRepo := NewMockAssignmentRepository(roleRepo)
	svc := rbac.NewAssignmentService(assignRepo, roleRepo, audit.NewSlogLogger())
	ctx := context.Background()

	roleRepo.roles["role-1"] = &rbac.Role{ID: "role-1", Name: "viewer"}

	if err := svc.Remove(ctx, "actor-1", "user-1", "role-1"); !errors.Is(err, rbac.ErrNotAssigned) {
		t.Errorf("expected ErrNotAssigned, got %v", err)
	}
}

func TestAssignmentService_SyncAll(t *testing.T) {
	permRepo := NewMockPermissionRepository()
	roleRepo := NewMockRoleRepository(permRepo)
	assignRepo := NewMockAssignmentRepository(roleRepo)
	svc := rbac.NewAssignmentService(assignRepo, roleRepo, audit.NewSlogLogger())
	ctx := context.Background()

	roleRepo.roles["role-1"] = &rbac.Role{ID: "role-1", Name: "viewer"}
	roleRepo.roles["role-2"] = &rbac.Role{ID: "role-2", Name: "editor"}
	roleRepo.roles["role-3"] = &rbac.Role{ID: "role-3", Name: "manager"}

	if err := svc.Assign(ctx, "actor-1", "user-1", "role-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicates in the request are collapsed, the old set is replaced.
	if err := svc.SyncAll(ctx, "actor-1", "user-1", []string{"role-2", "role-3", "role-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	roles, err := svc.RolesOf(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles after sync, got %d", len(roles))
	}

	// Unknown role rejects the whole sync
	if err := svc.SyncAll(ctx, "actor-1", "user-1", []string{"role-1", "role-missing"}); !errors.Is(err, rbac.ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestTierForRole(t *testing.T) {
	tests := []struct {
		name     string
		isSystem bool
		want     rbac.Tier
	}{
		{rbac.RoleSuperAdmin, true, rbac.TierTop},
		{rbac.RoleAdmin, true, rbac.TierElevated},
		{rbac.RoleManager, false, rbac.TierStandard},
		{"custom", false, rbac.TierStandard},
		// A system-flagged role with an unknown name fails closed to top.
		{"mystery", true, rbac.TierTop},
	}

	for _, tt := range tests {
		if got := rbac.TierForRole(tt.name, tt.isSystem); got != tt.want {
			t.Errorf("TierForRole(%q, %v) = %v, want %v", tt.name, tt.isSystem, got, tt.want)
		}
	}
}

func TestEffectivePermissions_UnionSorted(t *testing.T) {
	roles := []*rbac.Role{
		{Permissions: []rbac.Permission{{Name: "users.view"}, {Name: "content.view"}}},
		{Permissions: []rbac.Permission{{Name: "content.view"}, {Name: "analytics.view"}}},
	}

	got := rbac.EffectivePermissions(roles)
	want := []string{"analytics.view", "content.view", "users.view"}
	if len(got) != len(want) {
		t.Fatalf("EffectivePermissions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EffectivePermissions = %v, want %v", got, want)
		}
	}
}

func TestHighestTier(t *testing.T) {
	if got := rbac.HighestTier(nil); got != rbac.TierStandard {
		t.Errorf("empty role set tier = %v, want standard", got)
	}

	roles := []*rbac.Role{
		{Tier: rbac.TierStandard},
		{Tier: rbac.TierElevated},
	}
	if got := rbac.HighestTier(roles); got != rbac.TierElevated {
		t.Errorf("HighestTier = %v, want elevated", got)
	}
}
