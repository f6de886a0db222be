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

package rbac

import (
	"context"
	"errors"
	"fmt"
)

// PermissionService exposes the read side of the permission catalog.
// Permissions are provisioned by seed tooling, never through this service.
type PermissionService struct {
	permissions PermissionRepository
}

// NewPermissionService creates a new permission registry service
func NewPermissionService(permissions PermissionRepository) *PermissionService {
	return &PermissionService{permissions: permissions}
}

// ListAll retrieves the full permission catalog.
func (s *PermissionService) ListAll(ctx context.Context) ([]*Permission, error) {
	perms, err := s.permissions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// FindByNames resolves permission names to catalog entries. If any name has
// no matching permission the whole lookup fails with ErrPermissionNotFound;
// callers performing a sync must reject the entire sync, never apply a subset.
func (s *PermissionService) FindByNames(ctx context.Context, names []string) ([]*Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}

	perms, err := s.permissions.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to find permissions: %w", err)
	}

	found := make(map[string]bool, len(perms))
	for _, p := range perms {
		found[p.Name] = true
	}
	for _, name := range names {
		if !found[name] {
			return nil, fmt.Errorf("%w: %s", ErrPermissionNotFound, name)
		}
	}

	return perms, nil
}

// Exists reports whether a permission name is present in the catalog.
func (s *PermissionService) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.permissions.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrPermissionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up permission: %w", err)
	}
	return true, nil
}
