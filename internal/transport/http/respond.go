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
	"net/http"

	"github.com/pulseboard/pulseboard/internal/authz"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDecision translates a denial into its transport status: 401 for a
// missing principal, 403 for everything else. The reason and, when present,
// the missing permission are spelled out so a denial is never a silent no-op.
func respondDecision(w http.ResponseWriter, d authz.Decision) {
	status := http.StatusForbidden
	if d.Reason == authz.ReasonUnauthenticated {
		status = http.StatusUnauthorized
	}

	body := map[string]string{
		"error":  "access denied",
		"reason": string(d.Reason),
	}
	if d.Permission != "" {
		body["permission"] = d.Permission
	}
	respondJSON(w, status, body)
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
