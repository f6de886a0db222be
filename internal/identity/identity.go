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
	"context"
	"fmt"

	"github.com/pulseboard/pulseboard/internal/rbac"
)

// State describes how far an identity has progressed toward full access.
// PasswordChangeRequired and TermsAcceptanceRequired restrict the identity
// to a narrow allowlist (change password, accept terms, logout) regardless
// of its underlying permissions.
type State int

const (
	StateUnauthenticated State = iota
	StatePasswordChangeRequired
	StateTermsAcceptanceRequired
	StateFullyActive
)

// String returns the state name used in logs and API payloads.
func (s State) String() string {
	switch s {
	case StatePasswordChangeRequired:
		return "password_change_required"
	case StateTermsAcceptanceRequired:
		return "terms_acceptance_required"
	case StateFullyActive:
		return "fully_active"
	default:
		return "unauthenticated"
	}
}

// Identity is the resolved principal for one request: the user, the role set
// loaded at resolution time, and the effective permission union memoized for
// the lifetime of this value only. A new Identity is resolved per request so
// role and permission edits take effect on the next check.
type Identity struct {
	user  *User
	state State
	roles []*rbac.Role

	effective     map[string]bool
	effectiveList []string
}

// Anonymous returns the unauthenticated identity.
func Anonymous() *Identity {
	return &Identity{state: StateUnauthenticated}
}

// NewIdentity builds an identity from an already-loaded user and role set.
func NewIdentity(user *User, roles []*rbac.Role) *Identity {
	return &Identity{
		user:  user,
		state: stateFor(user),
		roles: roles,
	}
}

func stateFor(user *User) State {
	switch {
	case user == nil:
		return StateUnauthenticated
	case user.TempPassword:
		return StatePasswordChangeRequired
	case user.TermsAcceptedAt == nil:
		return StateTermsAcceptanceRequired
	default:
		return StateFullyActive
	}
}

// User returns the underlying user, nil for the anonymous identity.
func (i *Identity) User() *User {
	return i.user
}

// UserID returns the user ID, empty for the anonymous identity.
func (i *Identity) UserID() string {
	if i.user == nil {
		return ""
	}
	return i.user.ID
}

// State returns the identity's lifecycle state.
func (i *Identity) State() State {
	return i.state
}

// Authenticated reports whether a principal is present at all.
func (i *Identity) Authenticated() bool {
	return i.state != StateUnauthenticated
}

// Restricted reports whether the identity is confined to the self-service
// allowlist (change password, accept terms, logout).
func (i *Identity) Restricted() bool {
	return i.state == StatePasswordChangeRequired || i.state == StateTermsAcceptanceRequired
}

// Roles returns the role set resolved for this request.
func (i *Identity) Roles() []*rbac.Role {
	return i.roles
}

// Tier returns the most powerful tier among the identity's roles.
func (i *Identity) Tier() rbac.Tier {
	return rbac.HighestTier(i.roles)
}

// IsTopTier reports whether the identity holds a top-tier role.
func (i *Identity) IsTopTier() bool {
	return i.Tier() == rbac.TierTop
}

// EffectivePermissions returns the union of permission names across all
// roles, sorted. Memoized on first call; never cached across requests.
func (i *Identity) EffectivePermissions() []string {
	i.memoize()
	return i.effectiveList
}

// HasPermission reports whether the effective permission set contains name.
// Top-tier bypass is the evaluator's concern, not this lookup's.
func (i *Identity) HasPermission(name string) bool {
	i.memoize()
	return i.effective[name]
}

func (i *Identity) memoize() {
	if i.effective != nil {
		return
	}
	i.effectiveList = rbac.EffectivePermissions(i.roles)
	i.effective = make(map[string]bool, len(i.effectiveList))
	for _, name := range i.effectiveList {
		i.effective[name] = true
	}
}

// Snapshot is the serialized {roles, permissions} view delivered to the
// frontend once at login. Router guards use it to hide affordances; the
// evaluator remains authoritative on every state-changing request.
type Snapshot struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	State       string   `json:"state"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Snapshot builds the advisory frontend snapshot for this identity.
func (i *Identity) Snapshot() Snapshot {
	roleNames := make([]string, 0, len(i.roles))
	for _, r := range i.roles {
		roleNames = append(roleNames, r.Name)
	}
	snap := Snapshot{
		State:       i.state.String(),
		Roles:       roleNames,
		Permissions: i.EffectivePermissions(),
	}
	if i.user != nil {
		snap.UserID = i.user.ID
		snap.Name = i.user.Name
		snap.Email = i.user.Email
	}
	return snap
}

// Resolver turns an authenticated user ID into a fully-loaded Identity.
type Resolver struct {
	users       UserRepository
	assignments rbac.AssignmentRepository
}

// NewResolver creates a new identity resolver
func NewResolver(users UserRepository, assignments rbac.AssignmentRepository) *Resolver {
	return &Resolver{users: users, assignments: assignments}
}

// Resolve loads the user and its role set fresh. No caching across requests:
// a role or permission edit is visible on the very next check.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Identity, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, err := r.assignments.RolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}

	return NewIdentity(user, roles), nil
}
