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

// Seed populates the permission catalog and the built-in roles. It writes
// through the repositories directly: the seed and bootstrap paths are the only
// writers of system roles, everything else goes through the evaluator.
// Safe to run repeatedly; existing rows are left untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pulseboard/pulseboard/internal/config"
	"github.com/pulseboard/pulseboard/internal/id"
	"github.com/pulseboard/pulseboard/internal/observability/logger"
	"github.com/pulseboard/pulseboard/internal/rbac"
	"github.com/pulseboard/pulseboard/internal/store/postgres"
)

type seedRole struct {
	name        string
	displayName string
	description string
	color       string
	isSystem    bool
	permissions []string
}

var seedRoles = []seedRole{
	{
		name:        rbac.RoleSuperAdmin,
		displayName: "Super Admin",
		description: "Full access to everything; bypasses all permission checks",
		color:       "#d32f2f",
		isSystem:    true,
		// No explicit permissions: the evaluator grants implicit allow.
	},
	{
		name:        rbac.RoleAdmin,
		displayName: "Administrator",
		description: "Day-to-day administration of users, roles and content",
		color:       "#f57c00",
		isSystem:    true,
		permissions: rbac.AdminPermissions,
	},
	{
		name:        rbac.RoleManager,
		displayName: "Manager",
		description: "Content and analytics management",
		color:       "#1976d2",
		permissions: rbac.ManagerPermissions,
	},
	{
		name:        rbac.RoleViewer,
		displayName: "Viewer",
		description: "Read-only portal access",
		color:       "#388e3c",
		permissions: rbac.ViewerPermissions,
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx := context.Background()

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	permissionRepo := postgres.NewPermissionRepository(db)
	roleRepo := postgres.NewRoleRepository(db)

	if err := seedPermissions(ctx, permissionRepo); err != nil {
		slog.Error("failed to seed permissions", logger.Error(err))
		os.Exit(1)
	}

	if err := seedBuiltinRoles(ctx, roleRepo, permissionRepo); err != nil {
		slog.Error("failed to seed roles", logger.Error(err))
		os.Exit(1)
	}

	slog.Info("seed complete")
}

// seedPermissions inserts catalog entries that do not exist yet, preserving
// catalog order for the UI.
func seedPermissions(ctx context.Context, repo *postgres.PermissionRepository) error {
	for _, entry := range rbac.Catalog {
		_, err := repo.GetByName(ctx, entry.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, rbac.ErrPermissionNotFound) {
			return err
		}

		now := time.Now()
		perm := &rbac.Permission{
			ID:          id.NewUUIDv7(),
			Name:        entry.Name,
			DisplayName: entry.DisplayName,
			Group:       entry.Group,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, perm); err != nil {
			return fmt.Errorf("failed to create permission %s: %w", entry.Name, err)
		}
		slog.Info("seeded permission", logger.Permission(entry.Name))
	}
	return nil
}

func seedBuiltinRoles(ctx context.Context, roles *postgres.RoleRepository, permissions *postgres.PermissionRepository) error {
	for _, sr := range seedRoles {
		if _, err := roles.GetByName(ctx, sr.name); err == nil {
			continue
		} else if !errors.Is(err, rbac.ErrRoleNotFound) {
			return err
		}

		perms, err := permissions.FindByNames(ctx, sr.permissions)
		if err != nil {
			return fmt.Errorf("failed to resolve permissions for %s: %w", sr.name, err)
		}
		if len(perms) != len(sr.permissions) {
			return fmt.Errorf("role %s references unseeded permissions", sr.name)
		}

		now := time.Now()
		role := &rbac.Role{
			ID:          id.NewUUIDv7(),
			Name:        sr.name,
			DisplayName: sr.displayName,
			Description: sr.description,
			Color:       sr.color,
			IsSystem:    sr.isSystem,
			Tier:        rbac.TierForRole(sr.name, sr.isSystem),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, p := range perms {
			role.Permissions = append(role.Permissions, *p)
		}

		if err := roles.Create(ctx, role); err != nil {
			return fmt.Errorf("failed to create role %s: %w", sr.name, err)
		}
		slog.Info("seeded role", logger.Role(sr.name), logger.Tier(role.Tier.String()))
	}
	return nil
}
