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

package authz

import (
	"context"

	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

// actionPermissions maps each role action to the base permission gate that
// must pass before any tier rule is considered.
var actionPermissions = map[RoleAction]string{
	ActionAssign:          rbac.PermUserRolesAssign,
	ActionRemove:          rbac.PermUserRolesRemove,
	ActionSync:            rbac.PermUserRolesSync,
	ActionUpdate:          rbac.PermRolesUpdate,
	ActionDelete:          rbac.PermRolesDelete,
	ActionSyncPermissions: rbac.PermRolesAssignPermissions,
}

// Evaluator is the authorization decision function. It is stateless and
// side-effect-free apart from audit logging: every call works on the role
// and permission data already resolved into the Identity, so concurrent
// checks need no shared mutable state.
type Evaluator struct {
	auditLogger audit.Logger
}

// NewEvaluator creates a new authorization evaluator
func NewEvaluator(auditLogger audit.Logger) *Evaluator {
	return &Evaluator{auditLogger: auditLogger}
}

// Check answers "may this identity perform the capability named by
// permission". Top-tier identities are granted implicit allow for every
// permission gate, including names absent from the catalog. Restricted
// identities (temporary password, pending terms) fail every gate check; the
// self-service allowlist is routed around the evaluator entirely.
func (e *Evaluator) Check(ctx context.Context, ident *identity.Identity, permission string) Decision {
	if ident == nil || !ident.Authenticated() {
		return e.deny(ctx, ident, Deny(ReasonUnauthenticated), permission)
	}
	if ident.Restricted() {
		return e.deny(ctx, ident, DenyMissing(permission), permission)
	}
	if ident.IsTopTier() {
		return Allow()
	}
	if ident.HasPermission(permission) {
		return Allow()
	}
	return e.deny(ctx, ident, DenyMissing(permission), permission)
}

// CheckRoleAction answers "may this identity perform action against the
// target role". The base permission gate applies first, then the tier rules:
//
//   - Top tier may assign, remove or sync any role and mutate any
//     non-system role.
//   - The elevated tier can never grant or revoke top- or elevated-tier
//     roles on anyone, itself included.
//   - System-flagged roles cannot be edited or deleted through this path at
//     all; the bootstrap/seed tooling is the only writer. Both the flag and
//     the computed tier are consulted so a mislabeled row fails closed.
func (e *Evaluator) CheckRoleAction(ctx context.Context, ident *identity.Identity, action RoleAction, target *rbac.Role) Decision {
	required, ok := actionPermissions[action]
	if !ok {
		// Unknown actions fail closed as a missing permission.
		return e.deny(ctx, ident, DenyMissing(string(action)), string(action))
	}

	if d := e.Check(ctx, ident, required); !d.Allowed {
		return d
	}

	switch action {
	case ActionUpdate, ActionDelete, ActionSyncPermissions:
		if target.IsSystem || target.Tier == rbac.TierTop {
			return e.deny(ctx, ident, Deny(ReasonSystemRoleImmutable), target.Name)
		}
		return Allow()

	case ActionAssign, ActionRemove, ActionSync:
		if ident.IsTopTier() {
			return Allow()
		}
		if target.Tier.AtLeast(rbac.TierElevated) || target.IsSystem {
			return e.deny(ctx, ident, Deny(ReasonTierViolation), target.Name)
		}
		return Allow()
	}

	return e.deny(ctx, ident, DenyMissing(required), string(action))
}

// CheckRoleSync evaluates a full role-set replacement: the sync is denied if
// any single role in the requested set would be denied individually.
func (e *Evaluator) CheckRoleSync(ctx context.Context, ident *identity.Identity, targets []*rbac.Role) Decision {
	for _, target := range targets {
		if d := e.CheckRoleAction(ctx, ident, ActionSync, target); !d.Allowed {
			return d
		}
	}
	// An empty sync still needs the base permission.
	if len(targets) == 0 {
		return e.Check(ctx, ident, rbac.PermUserRolesSync)
	}
	return Allow()
}

func (e *Evaluator) deny(ctx context.Context, ident *identity.Identity, d Decision, resource string) Decision {
	actorID := ""
	if ident != nil {
		actorID = ident.UserID()
	}
	e.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccessDenied,
		ActorID:  actorID,
		Resource: resource,
		Metadata: map[string]any{audit.AttrReason: string(d.Reason)},
	})
	return d
}
