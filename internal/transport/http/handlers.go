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
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/authz"
	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/observability/metrics"
	"github.com/pulseboard/pulseboard/internal/rbac"
	"github.com/pulseboard/pulseboard/internal/session"
	"github.com/pulseboard/pulseboard/internal/token"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService   *identity.Service
	sessionService    *session.Service
	resolver          *identity.Resolver
	roleService       *rbac.RoleService
	permissionService *rbac.PermissionService
	assignmentService *rbac.AssignmentService
	evaluator         *authz.Evaluator
	tokenIssuer       *token.Issuer
	auditLogger       audit.Logger
	authzMetrics      *metrics.AuthzMetrics
	validate          *validator.Validate
	sessionConfig     SessionConfig
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
	Lifetime       time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	sessionService *session.Service,
	resolver *identity.Resolver,
	roleService *rbac.RoleService,
	permissionService *rbac.PermissionService,
	assignmentService *rbac.AssignmentService,
	evaluator *authz.Evaluator,
	tokenIssuer *token.Issuer,
	auditLogger audit.Logger,
	authzMetrics *metrics.AuthzMetrics,
	sessionConfig SessionConfig,
) *Handler {
	return &Handler{
		identityService:   identityService,
		sessionService:    sessionService,
		resolver:          resolver,
		roleService:       roleService,
		permissionService: permissionService,
		assignmentService: assignmentService,
		evaluator:         evaluator,
		tokenIssuer:       tokenIssuer,
		auditLogger:       auditLogger,
		authzMetrics:      authzMetrics,
		validate:          validator.New(),
		sessionConfig:     sessionConfig,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter, production bool) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(SecureHeaders(production))
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Self-service allowlist: reachable by restricted identities so an
		// invited user can complete the password change and terms steps.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)
			r.Post("/auth/change-password", h.ChangePassword)
			r.Post("/auth/accept-terms", h.AcceptTerms)
		})

		// Full portal surface: restricted identities are rejected here.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Use(h.RequireFullAccess)

			r.With(h.RequirePermission(rbac.PermPermissionsView)).
				Get("/permissions", h.ListPermissions)

			r.Route("/roles", func(r chi.Router) {
				r.With(h.RequirePermission(rbac.PermRolesView)).Get("/", h.ListRoles)
				r.With(h.RequirePermission(rbac.PermRolesCreate)).Post("/", h.CreateRole)
				r.With(h.RequirePermission(rbac.PermRolesView)).Get("/{roleID}", h.GetRole)
				r.Put("/{roleID}", h.UpdateRole)
				r.Delete("/{roleID}", h.DeleteRole)
				r.Put("/{roleID}/permissions", h.SyncRolePermissions)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(h.RequirePermission(rbac.PermUsersView)).Get("/", h.ListUsers)
				r.With(h.RequirePermission(rbac.PermUsersCreate)).Post("/", h.CreateUser)
				r.With(h.RequirePermission(rbac.PermUsersInvite)).Post("/invite", h.InviteUser)

				r.Route("/{userID}/roles", func(r chi.Router) {
					r.With(h.RequirePermission(rbac.PermRolesView)).Get("/", h.ListUserRoles)
					r.Post("/", h.AssignRole)
					r.Delete("/{roleID}", h.RemoveRole)
					r.Put("/", h.SyncUserRoles)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pulseboard",
	})
}

func (h *Handler) recordDecision(ctx context.Context, d authz.Decision) {
	if h.authzMetrics != nil {
		h.authzMetrics.RecordDecision(ctx, d.Allowed, string(d.Reason))
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    sessionID,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   int(h.sessionConfig.Lifetime.Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   h.sessionConfig.CookieName,
		Value:  "",
		Path:   h.sessionConfig.CookiePath,
		Domain: h.sessionConfig.CookieDomain,
		MaxAge: -1,
	})
}

func (h *Handler) getSessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
