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

// Reason is the machine-distinguishable cause of a denial. Callers map it to
// a transport-level status (401 for unauthenticated, 403 for the rest) and a
// precise message; a denial is never a silent no-op.
type Reason string

const (
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonMissingPermission   Reason = "missing_permission"
	ReasonTierViolation       Reason = "tier_violation"
	ReasonSystemRoleImmutable Reason = "system_role_immutable"
)

// Decision is the binary outcome of one check. There are no partial or
// soft-allow states.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Permission carries the missing permission name when Reason is
	// ReasonMissingPermission.
	Permission string
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given reason.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// DenyMissing returns a denial naming the permission that was required.
func DenyMissing(permission string) Decision {
	return Decision{Reason: ReasonMissingPermission, Permission: permission}
}

// RoleAction is a role-mutation or role-assignment operation subject to
// tier-protection rules on top of the base permission gate.
type RoleAction string

const (
	ActionAssign          RoleAction = "assign"
	ActionRemove          RoleAction = "remove"
	ActionSync            RoleAction = "sync"
	ActionUpdate          RoleAction = "update"
	ActionDelete          RoleAction = "delete"
	ActionSyncPermissions RoleAction = "sync_permissions"
)
