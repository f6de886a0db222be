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
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrAccountLocked      = errors.New("account is locked")
)

// User represents a portal user. Users are soft-deleted; audit history keeps
// referencing the row after deletion.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	TempPassword        bool
	TermsAcceptedAt     *time.Time
	LastActiveAt        *time.Time
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user information
	Update(ctx context.Context, user *User) error

	// UpdateLockout updates user lockout status
	UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error

	// UpdatePassword updates the password hash and temporary-credential flag
	UpdatePassword(ctx context.Context, userID, passwordHash string, temporary bool) error

	// SetTermsAccepted records terms acceptance
	SetTermsAccepted(ctx context.Context, userID string, at time.Time) error

	// TouchActivity updates the last-activity timestamp
	TouchActivity(ctx context.Context, userID string, at time.Time) error

	// List retrieves all non-deleted users
	List(ctx context.Context) ([]*User, error)

	// Delete soft-deletes a user
	Delete(ctx context.Context, id string) error
}
