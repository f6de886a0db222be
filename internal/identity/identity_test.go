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

package identity

import (
	"reflect"
	"testing"
	"time"

	"github.com/pulseboard/pulseboard/internal/rbac"
)

func TestIdentityState(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		user *User
		want State
	}{
		{"nil user", nil, StateUnauthenticated},
		{"temp password", &User{ID: "u1", TempPassword: true}, StatePasswordChangeRequired},
		{"temp password wins over pending terms", &User{ID: "u1", TempPassword: true, TermsAcceptedAt: nil}, StatePasswordChangeRequired},
		{"pending terms", &User{ID: "u1"}, StateTermsAcceptanceRequired},
		{"fully active", &User{ID: "u1", TermsAcceptedAt: &now}, StateFullyActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident := NewIdentity(tt.user, nil)
			if ident.State() != tt.want {
				t.Errorf("State() = %v, want %v", ident.State(), tt.want)
			}
		})
	}
}

func TestIdentityRestricted(t *testing.T) {
	now := time.Now()

	if !NewIdentity(&User{ID: "u1", TempPassword: true}, nil).Restricted() {
		t.Error("temp-password identity should be restricted")
	}
	if !NewIdentity(&User{ID: "u1"}, nil).Restricted() {
		t.Error("pending-terms identity should be restricted")
	}
	if NewIdentity(&User{ID: "u1", TermsAcceptedAt: &now}, nil).Restricted() {
		t.Error("fully active identity should not be restricted")
	}
	if Anonymous().Restricted() {
		t.Error("anonymous is unauthenticated, not restricted")
	}
}

func TestAnonymous(t *testing.T) {
	anon := Anonymous()
	if anon.Authenticated() {
		t.Error("anonymous identity must not be authenticated")
	}
	if anon.UserID() != "" {
		t.Errorf("UserID() = %q, want empty", anon.UserID())
	}
	if anon.IsTopTier() {
		t.Error("anonymous identity must not rank top tier")
	}
	if got := anon.EffectivePermissions(); len(got) != 0 {
		t.Errorf("EffectivePermissions() = %v, want empty", got)
	}
}

func TestIdentityEffectivePermissions(t *testing.T) {
	now := time.Now()
	roles := []*rbac.Role{
		{
			Name: "manager",
			Permissions: []rbac.Permission{
				{Name: "users.view"},
				{Name: "content.manage"},
			},
		},
		{
			Name: "viewer",
			Permissions: []rbac.Permission{
				{Name: "users.view"},
				{Name: "analytics.view"},
			},
		},
	}

	ident := NewIdentity(&User{ID: "u1", TermsAcceptedAt: &now}, roles)

	want := []string{"analytics.view", "content.manage", "users.view"}
	if got := ident.EffectivePermissions(); !reflect.DeepEqual(got, want) {
		t.Errorf("EffectivePermissions() = %v, want %v", got, want)
	}

	if !ident.HasPermission("content.manage") {
		t.Error("expected content.manage in effective set")
	}
	if ident.HasPermission("users.delete") {
		t.Error("users.delete must not be in effective set")
	}
}

func TestIdentityTier(t *testing.T) {
	now := time.Now()
	ident := NewIdentity(&User{ID: "u1", TermsAcceptedAt: &now}, []*rbac.Role{
		{Name: "viewer", Tier: rbac.TierStandard},
		{Name: rbac.RoleAdmin, Tier: rbac.TierElevated},
	})
	if ident.Tier() != rbac.TierElevated {
		t.Errorf("Tier() = %v, want elevated", ident.Tier())
	}
	if ident.IsTopTier() {
		t.Error("elevated identity is not top tier")
	}
}

func TestIdentitySnapshot(t *testing.T) {
	now := time.Now()
	ident := NewIdentity(
		&User{ID: "u1", Name: "Jordan", Email: "jordan@example.com", TermsAcceptedAt: &now},
		[]*rbac.Role{
			{Name: "viewer", Permissions: []rbac.Permission{{Name: "users.view"}}},
		},
	)

	snap := ident.Snapshot()
	if snap.UserID != "u1" || snap.Email != "jordan@example.com" {
		t.Errorf("snapshot user fields wrong: %+v", snap)
	}
	if snap.State != "fully_active" {
		t.Errorf("snapshot state = %q, want fully_active", snap.State)
	}
	if !reflect.DeepEqual(snap.Roles, []string{"viewer"}) {
		t.Errorf("snapshot roles = %v", snap.Roles)
	}
	if !reflect.DeepEqual(snap.Permissions, []string{"users.view"}) {
		t.Errorf("snapshot permissions = %v", snap.Permissions)
	}
}
