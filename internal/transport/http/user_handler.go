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

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pulseboard/pulseboard/internal/authz"
	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

// userResponse is the wire shape for a user.
type userResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	TempPassword bool       `json:"temp_password"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toUserResponse(user *identity.User) userResponse {
	return userResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		TempPassword: user.TempPassword,
		LastActiveAt: user.LastActiveAt,
		CreatedAt:    user.CreatedAt,
	}
}

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}

// CreateUserRequest represents user creation data
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// CreateUser creates a user with a permanent password.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "name, email and a password of at least 8 characters are required")
		return
	}

	user, err := h.identityService.Create(r.Context(), GetUserID(r.Context()), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondUserError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// InviteUserRequest represents invitation data. The temporary password forces
// a password change on first login.
type InviteUserRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	TempPassword string `json:"temp_password" validate:"required,min=8"`
}

// InviteUser provisions a user with temporary credentials.
func (h *Handler) InviteUser(w http.ResponseWriter, r *http.Request) {
	var req InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "name, email and a temporary password of at least 8 characters are required")
		return
	}

	user, err := h.identityService.Invite(r.Context(), GetUserID(r.Context()), req.Name, req.Email, req.TempPassword)
	if err != nil {
		h.respondUserError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// ListUserRoles returns the roles a user holds.
func (h *Handler) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.assignmentService.RolesOf(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load user roles")
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"roles":       out,
		"permissions": rbac.EffectivePermissions(roles),
	})
}

// AssignRoleRequest names the role to grant.
type AssignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required"`
}

// AssignRole grants a role to a user. Tier rules apply on top of the base
// permission gate: an elevated actor can never hand out elevated or top roles.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "role_id is required")
		return
	}

	target, err := h.roleService.Get(r.Context(), req.RoleID)
	if err != nil {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}

	d := h.evaluator.CheckRoleAction(r.Context(), GetIdentity(r.Context()), authz.ActionAssign, target)
	h.recordDecision(r.Context(), d)
	if !d.Allowed {
		respondDecision(w, d)
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.assignmentService.Assign(r.Context(), GetUserID(r.Context()), userID, target.ID); err != nil {
		if errors.Is(err, rbac.ErrAlreadyAssigned) {
			respondError(w, http.StatusConflict, "user already holds this role")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to assign role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "role assigned"})
}

// RemoveRole revokes a role from a user.
func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	target, err := h.roleService.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}

	d := h.evaluator.CheckRoleAction(r.Context(), GetIdentity(r.Context()), authz.ActionRemove, target)
	h.recordDecision(r.Context(), d)
	if !d.Allowed {
		respondDecision(w, d)
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.assignmentService.Remove(r.Context(), GetUserID(r.Context()), userID, target.ID); err != nil {
		if errors.Is(err, rbac.ErrNotAssigned) {
			respondError(w, http.StatusNotFound, "user does not hold this role")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "role removed"})
}

// SyncUserRolesRequest carries the full replacement role set.
type SyncUserRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// SyncUserRoles atomically replaces a user's role set. The sync is denied if
// any single role in the requested set would be denied individually.
func (h *Handler) SyncUserRoles(w http.ResponseWriter, r *http.Request) {
	var req SyncUserRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targets := make([]*rbac.Role, 0, len(req.RoleIDs))
	for _, roleID := range req.RoleIDs {
		role, err := h.roleService.Get(r.Context(), roleID)
		if err != nil {
			respondError(w, http.StatusNotFound, "role not found: "+roleID)
			return
		}
		targets = append(targets, role)
	}

	d := h.evaluator.CheckRoleSync(r.Context(), GetIdentity(r.Context()), targets)
	h.recordDecision(r.Context(), d)
	if !d.Allowed {
		respondDecision(w, d)
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.assignmentService.SyncAll(r.Context(), GetUserID(r.Context()), userID, req.RoleIDs); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to sync user roles")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "roles synced"})
}

func (h *Handler) respondUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrUserAlreadyExists):
		respondError(w, http.StatusConflict, "user already exists")
	case errors.Is(err, identity.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, "invalid email address")
	case errors.Is(err, identity.ErrWeakPassword):
		respondError(w, http.StatusBadRequest, "password does not meet security requirements")
	default:
		respondError(w, http.StatusInternalServerError, "failed to create user")
	}
}
