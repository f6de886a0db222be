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

	"github.com/go-chi/chi/v5"
	"github.com/pulseboard/pulseboard/internal/authz"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

// roleResponse is the wire shape for a role.
type roleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	IsSystem    bool     `json:"is_system"`
	Tier        string   `json:"tier"`
	Permissions []string `json:"permissions"`
}

func toRoleResponse(role *rbac.Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		DisplayName: role.DisplayName,
		Description: role.Description,
		Color:       role.Color,
		IsSystem:    role.IsSystem,
		Tier:        role.Tier.String(),
		Permissions: role.PermissionNames(),
	}
}

// ListPermissions returns the permission catalog grouped for the admin UI.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.permissionService.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	type permissionResponse struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Group       string `json:"group"`
	}

	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{
			ID:          p.ID,
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Group:       p.Group,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"permissions": out})
}

// ListRoles returns every non-deleted role with its permission set.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": out})
}

// GetRole returns a single role.
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.roleService.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}
	respondJSON(w, http.StatusOK, toRoleResponse(role))
}

// CreateRoleRequest represents role creation data
type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	DisplayName string `json:"display_name" validate:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// CreateRole creates a custom role.
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "name and display_name are required")
		return
	}

	role, err := h.roleService.Create(r.Context(), GetUserID(r.Context()), rbac.CreateInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		if errors.Is(err, rbac.ErrDuplicateName) {
			respondError(w, http.StatusConflict, "role name already taken")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create role")
		return
	}

	respondJSON(w, http.StatusCreated, toRoleResponse(role))
}

// UpdateRoleRequest represents the mutable role fields; the name is immutable.
type UpdateRoleRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// UpdateRole updates a role's cosmetic fields.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	target, err := h.roleService.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}

	d := h.evaluator.CheckRoleAction(r.Context(), GetIdentity(r.Context()), authz.ActionUpdate, target)
	h.recordDecision(r.Context(), d)
	if !d.Allowed {
		respondDecision(w, d)
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	role, err := h.roleService.Update(r.Context(), GetUserID(r.Context()), target.ID, rbac.UpdateInput{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		h.respondRoleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toRoleResponse(role))
}

// DeleteRole soft-deletes a role.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	target, err := h.roleService.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}

	d := h.evaluator.CheckRoleAction(r.Context(), GetIdentity(r.Context()), authz.ActionDelete, target)
	h.recordDecision(r.Context(), d)
	if !d.Allowed {
		respondDecision(w, d)
		return
	}

	if err := h.roleService.Delete(r.Context(), GetUserID(r.Context()), target.ID); err != nil {
		h.respondRoleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "role deleted"})
}

// SyncRolePermissionsRequest carries the full replacement permission set.
type SyncRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// SyncRolePermissions atomically replaces a role's permission set. An unknown
// permission name rejects the whole sync.
func (h *Handler) SyncRolePermissions(w http.ResponseWriter, r *http.Request) {
	target, err := h.roleService.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}

	d := h.evaluator.CheckRoleAction(r.Context(), GetIdentity(r.Context()), authz.ActionSyncPermissions, target)
	h.recordDecision(r.Context(), d)
	if !d.Allowed {
		respondDecision(w, d)
		return
	}

	var req SyncRolePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.roleService.SyncPermissions(r.Context(), GetUserID(r.Context()), target.ID, req.Permissions)
	if err != nil {
		if errors.Is(err, rbac.ErrPermissionNotFound) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.respondRoleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) respondRoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrRoleNotFound):
		respondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, rbac.ErrSystemRoleImmutable):
		respondError(w, http.StatusForbidden, "system roles cannot be modified")
	default:
		respondError(w, http.StatusInternalServerError, "role operation failed")
	}
}
