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
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pulseboard/pulseboard/internal/observability/logger"
	"github.com/unrolled/secure"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// SecureHeaders applies the browser security header set. SSL redirection is
// enabled only behind a production proxy terminating TLS.
func SecureHeaders(production bool) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return sec.Handler
}

// AuthMiddleware validates the session cookie and resolves the identity for
// this request. Roles and permissions are loaded fresh on every request so an
// edit takes effect on the very next check.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := h.getSessionFromCookie(r)
		if sessionID == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		sess, err := h.sessionService.Get(r.Context(), sessionID)
		if err != nil {
			h.clearSessionCookie(w)
			respondError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ident, err := h.resolver.Resolve(r.Context(), sess.UserID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to resolve identity",
				logger.Error(err),
				logger.SessionID(sess.ID),
			)
			h.clearSessionCookie(w)
			respondError(w, http.StatusUnauthorized, "invalid session principal")
			return
		}

		if err := h.sessionService.Refresh(r.Context(), sessionID); err != nil {
			slog.ErrorContext(r.Context(), "failed to refresh session", logger.Error(err))
		}
		h.identityService.TouchActivity(r.Context(), sess.UserID)

		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		ctx = context.WithValue(ctx, sessionIDKey, sess.ID)
		ctx = context.WithValue(ctx, identityKey, ident)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireFullAccess rejects restricted identities. Routes behind it are the
// normal portal surface; the self-service allowlist (change password, accept
// terms, logout, me) is mounted outside this middleware.
func (h *Handler) RequireFullAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := GetIdentity(r.Context())
		if ident.Restricted() {
			respondJSON(w, http.StatusForbidden, map[string]string{
				"error": "account setup incomplete",
				"state": ident.State().String(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a route on one permission check.
func (h *Handler) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := GetIdentity(r.Context())
			d := h.evaluator.Check(r.Context(), ident, permission)
			h.recordDecision(r.Context(), d)
			if !d.Allowed {
				respondDecision(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
