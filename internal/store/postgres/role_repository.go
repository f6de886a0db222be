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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

// RoleRepository implements rbac.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

const roleColumns = `
	id, name, display_name, description, color, is_system, tier,
	created_at, updated_at, deleted_at
`

// Create inserts a new role with its permission set
func (r *RoleRepository) Create(ctx context.Context, role *rbac.Role) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO roles (
			id, name, display_name, description, color, is_system, tier,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		role.ID, role.Name, role.DisplayName, role.Description, role.Color,
		role.IsSystem, int(role.Tier), role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return rbac.ErrDuplicateName
		}
		return fmt.Errorf("failed to create role: %w", err)
	}

	for _, p := range role.Permissions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_has_permissions (role_id, permission_id)
			VALUES ($1, $2)
		`, role.ID, p.ID); err != nil {
			return fmt.Errorf("failed to attach permission: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a role with its permissions
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*rbac.Role, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	role, err := scanRole(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// GetByName retrieves a non-deleted role by unique name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*rbac.Role, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE name = $1 AND deleted_at IS NULL
	`, name)

	role, err := scanRole(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// NameExists reports whether a role name is taken, including soft-deleted rows
func (r *RoleRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM roles WHERE name = $1
	`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check role name: %w", err)
	}
	return count > 0, nil
}

// Update updates role fields (not its permission set)
func (r *RoleRepository) Update(ctx context.Context, role *rbac.Role) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles SET
			display_name = $2,
			description = $3,
			color = $4,
			updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`, role.ID, role.DisplayName, role.Description, role.Color, role.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

// ReplacePermissions atomically replaces the role's full permission set.
// A single transaction keeps concurrent permission checks from observing a
// half-applied set.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM role_has_permissions WHERE role_id = $1
	`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_has_permissions (role_id, permission_id)
			VALUES ($1, $2)
		`, roleID, permID); err != nil {
			return fmt.Errorf("failed to attach permission: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Delete soft-deletes a role
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now())

	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

// List retrieves all non-deleted roles with permissions
func (r *RoleRepository) List(ctx context.Context) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE deleted_at IS NULL
		ORDER BY tier DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*rbac.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, role := range roles {
		if err := r.loadPermissions(ctx, role); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (r *RoleRepository) loadPermissions(ctx context.Context, role *rbac.Role) error {
	rows, err := r.db.pool.Query(ctx, `
		SELECT p.id, p.name, p.display_name, p.description, p.group_name,
		       p.created_at, p.updated_at, p.deleted_at
		FROM permissions p
		JOIN role_has_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 AND p.deleted_at IS NULL
		ORDER BY p.sort_order
	`, role.ID)
	if err != nil {
		return fmt.Errorf("failed to load role permissions: %w", err)
	}
	defer rows.Close()

	perms, err := collectPermissions(rows)
	if err != nil {
		return err
	}

	role.Permissions = make([]rbac.Permission, 0, len(perms))
	for _, p := range perms {
		role.Permissions = append(role.Permissions, *p)
	}
	return nil
}

func scanRole(row pgx.Row) (*rbac.Role, error) {
	var role rbac.Role
	var tier int
	err := row.Scan(
		&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.Color,
		&role.IsSystem, &tier, &role.CreatedAt, &role.UpdatedAt, &role.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}
	role.Tier = rbac.Tier(tier)
	return &role, nil
}
