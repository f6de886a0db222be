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

// Package token issues the signed permission snapshot handed to the frontend
// at login. The snapshot is advisory: router guards read it to hide
// affordances, while the server-side evaluator stays authoritative on every
// request. HS256 with a server-held secret is enough because the only
// verifier is this server itself.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pulseboard/pulseboard/internal/identity"
)

// ErrInvalidToken is returned when a snapshot token fails signature or
// claims validation.
var ErrInvalidToken = errors.New("invalid snapshot token")

// SnapshotClaims carries the identity snapshot inside the JWT payload.
type SnapshotClaims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	State       string   `json:"state"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Issuer signs identity snapshots as compact JWTs.
type Issuer struct {
	issuer   string
	secret   []byte
	lifetime time.Duration
}

// NewIssuer creates a snapshot issuer. The lifetime should match the session
// lifetime so a stale snapshot cannot outlive its session.
func NewIssuer(issuer string, secret []byte, lifetime time.Duration) *Issuer {
	return &Issuer{issuer: issuer, secret: secret, lifetime: lifetime}
}

// Issue signs a snapshot token for the given identity.
func (i *Issuer) Issue(snap identity.Snapshot) (string, error) {
	now := time.Now()

	claims := SnapshotClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   snap.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
		Name:        snap.Name,
		Email:       snap.Email,
		State:       snap.State,
		Roles:       snap.Roles,
		Permissions: snap.Permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign snapshot token: %w", err)
	}
	return signed, nil
}

// Parse validates a snapshot token and returns its claims.
func (i *Issuer) Parse(tokenString string) (*SnapshotClaims, error) {
	var claims SnapshotClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}
