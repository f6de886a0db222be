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
	"fmt"
	"os"
	"time"

	"github.com/pulseboard/pulseboard/internal/audit"
	"github.com/pulseboard/pulseboard/internal/id"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

const (
	EnvBootstrapAdminEmail    = "PB_BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminName     = "PB_BOOTSTRAP_ADMIN_NAME"
	EnvBootstrapAdminPassword = "PB_BOOTSTRAP_ADMIN_PASSWORD"
)

// BootstrapService manages first-run initialization. This is the one path
// that touches the super_admin system role without going through the
// authorization evaluator: there is nobody to authorize against yet.
type BootstrapService struct {
	identityService *Service
	users           UserRepository
	roles           rbac.RoleRepository
	assignments     rbac.AssignmentRepository
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(
	identityService *Service,
	users UserRepository,
	roles rbac.RoleRepository,
	assignments rbac.AssignmentRepository,
	auditLogger audit.Logger,
) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		users:           users,
		roles:           roles,
		assignments:     assignments,
		auditLogger:     auditLogger,
	}
}

// Bootstrap provisions the initial super admin when the environment asks for
// one and no top-tier assignment exists yet. Safe to run on every startup.
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapAdminEmail)
	if email == "" {
		return nil
	}

	exists, err := s.assignments.AnyAtTier(ctx, rbac.TierTop)
	if err != nil {
		return fmt.Errorf("failed to check for existing super admin: %w", err)
	}
	if exists {
		// Already bootstrapped, skip silently
		return nil
	}

	role, err := s.roles.GetByName(ctx, rbac.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("super_admin role not seeded: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		password := os.Getenv(EnvBootstrapAdminPassword)
		if password == "" {
			return fmt.Errorf("bootstrap user %s does not exist and %s is not set", email, EnvBootstrapAdminPassword)
		}
		name := os.Getenv(EnvBootstrapAdminName)
		if name == "" {
			name = "Super Admin"
		}
		user, err = s.identityService.Create(ctx, audit.ActorSystemBootstrap, name, email, password)
		if err != nil {
			return fmt.Errorf("failed to create bootstrap user: %w", err)
		}
		// The bootstrap admin skips the terms gate; there is no one else
		// to approve it.
		if err := s.users.SetTermsAccepted(ctx, user.ID, time.Now()); err != nil {
			return fmt.Errorf("failed to activate bootstrap user: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to look up bootstrap user: %w", err)
	}

	assignment := &rbac.Assignment{
		ID:        id.NewUUIDv7(),
		UserID:    user.ID,
		RoleID:    role.ID,
		GrantedAt: time.Now(),
		GrantedBy: audit.ActorSystemBootstrap,
	}
	if err := s.assignments.Grant(ctx, assignment); err != nil {
		return fmt.Errorf("failed to grant super admin role during bootstrap: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		ActorID:  audit.ActorSystemBootstrap,
		Resource: rbac.RoleSuperAdmin,
		Metadata: map[string]any{audit.AttrTargetID: user.ID},
	})

	return nil
}
