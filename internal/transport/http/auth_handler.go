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
	"log/slog"
	"net/http"

	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/observability/logger"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates the user, starts a session and hands the frontend its
// one-time permission snapshot. The snapshot is advisory; every subsequent
// request is re-checked server-side.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordLogin(r, false)
		if errors.Is(err, identity.ErrAccountLocked) {
			respondError(w, http.StatusLocked, "account temporarily locked")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess, err := h.sessionService.Create(r.Context(), user.ID, getIPAddress(r), r.UserAgent())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	ident, err := h.resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to resolve identity", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to resolve identity")
		return
	}

	snapshot := ident.Snapshot()
	signed, err := h.tokenIssuer.Issue(snapshot)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to sign snapshot token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.setSessionCookie(w, sess.ID)
	h.recordLogin(r, true)

	respondJSON(w, http.StatusOK, map[string]any{
		"snapshot": snapshot,
		"token":    signed,
	})
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLogout,
		ActorID:   GetUserID(r.Context()),
		Resource:  "session",
		IPAddress: getIPAddress(r),
	})

	if err := h.sessionService.Delete(r.Context(), sessionID); err != nil {
		slog.ErrorContext(r.Context(), "failed to delete session", logger.Error(err))
	}

	h.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// Me returns the current identity snapshot, freshly resolved. Restricted
// identities see their pending state here so the frontend can route them to
// the right step.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	respondJSON(w, http.StatusOK, ident.Snapshot())
}

// ChangePasswordRequest represents password change data
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword replaces the caller's password. Clearing the temporary flag
// moves an invited user out of the password-change-required state, so this
// endpoint sits on the self-service allowlist.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "current and new password are required; new password must be at least 8 characters")
		return
	}

	err := h.identityService.ChangePassword(r.Context(), GetUserID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid current password")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "new password does not meet security requirements")
		default:
			respondError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password changed successfully",
	})
}

// AcceptTerms records terms acceptance for the caller. Idempotent; also on
// the self-service allowlist.
func (h *Handler) AcceptTerms(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.AcceptTerms(r.Context(), GetUserID(r.Context())); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record terms acceptance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "terms accepted",
	})
}

func (h *Handler) recordLogin(r *http.Request, success bool) {
	if h.authzMetrics != nil {
		h.authzMetrics.RecordLogin(r.Context(), success)
	}
}
