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
	"github.com/pulseboard/pulseboard/internal/rbac"
)

// PermissionRepository implements rbac.PermissionRepository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

const permissionColumns = `
	id, name, display_name, description, group_name,
	created_at, updated_at, deleted_at
`

// Create inserts a new permission. Sort order follows insertion order so the
// catalog lists the way the seed defines it.
func (r *PermissionRepository) Create(ctx context.Context, p *rbac.Permission) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (
			id, name, display_name, description, group_name, sort_order,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM permissions),
			$6, $7
		)
	`,
		p.ID, p.Name, p.DisplayName, p.Description, p.Group,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

// GetByName retrieves a permission by unique name
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*rbac.Permission, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE name = $1 AND deleted_at IS NULL
	`, name)
	return scanPermission(row)
}

// FindByNames retrieves permissions for the given names
func (r *PermissionRepository) FindByNames(ctx context.Context, names []string) ([]*rbac.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE name = ANY($1) AND deleted_at IS NULL
		ORDER BY sort_order
	`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to find permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// List retrieves the full catalog in seed order
func (r *PermissionRepository) List(ctx context.Context) ([]*rbac.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE deleted_at IS NULL
		ORDER BY sort_order
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// Delete soft-deletes a permission
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE permissions SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrPermissionNotFound
	}
	return nil
}

func scanPermission(row pgx.Row) (*rbac.Permission, error) {
	var p rbac.Permission
	err := row.Scan(
		&p.ID, &p.Name, &p.DisplayName, &p.Description, &p.Group,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to scan permission: %w", err)
	}
	return &p, nil
}

func collectPermissions(rows pgx.Rows) ([]*rbac.Permission, error) {
	var perms []*rbac.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
