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

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pulseboard/pulseboard/internal/rbac"
)

// AssignmentRepository implements rbac.AssignmentRepository. The composite
// primary key on user_has_roles turns a duplicate grant into a unique
// violation which surfaces as ErrAlreadyAssigned.
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Grant assigns a role to a user
func (r *AssignmentRepository) Grant(ctx context.Context, a *rbac.Assignment) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_has_roles (id, user_id, role_id, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.UserID, a.RoleID, a.GrantedAt, a.GrantedBy)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return rbac.ErrAlreadyAssigned
		}
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// Revoke removes a role from a user
func (r *AssignmentRepository) Revoke(ctx context.Context, userID, roleID string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_has_roles WHERE user_id = $1 AND role_id = $2
	`, userID, roleID)

	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rbac.ErrNotAssigned
	}
	return nil
}

// ReplaceForUser atomically replaces the user's entire role set
func (r *AssignmentRepository) ReplaceForUser(ctx context.Context, userID string, assignments []*rbac.Assignment) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM user_has_roles WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}

	for _, a := range assignments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_has_roles (id, user_id, role_id, granted_at, granted_by)
			VALUES ($1, $2, $3, $4, $5)
		`, a.ID, a.UserID, a.RoleID, a.GrantedAt, a.GrantedBy); err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListForUser retrieves all assignments for a user
func (r *AssignmentRepository) ListForUser(ctx context.Context, userID string) ([]*rbac.Assignment, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, user_id, role_id, granted_at, granted_by
		FROM user_has_roles
		WHERE user_id = $1
		ORDER BY granted_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*rbac.Assignment
	for rows.Next() {
		var a rbac.Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.RoleID, &a.GrantedAt, &a.GrantedBy); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// RolesForUser retrieves the user's non-deleted roles with permissions loaded
func (r *AssignmentRepository) RolesForUser(ctx context.Context, userID string) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT r.id, r.name, r.display_name, r.description, r.color,
		       r.is_system, r.tier, r.created_at, r.updated_at, r.deleted_at
		FROM roles r
		JOIN user_has_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 AND r.deleted_at IS NULL
		ORDER BY r.tier DESC, r.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
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

	roleRepo := &RoleRepository{db: r.db}
	for _, role := range roles {
		if err := roleRepo.loadPermissions(ctx, role); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// AnyAtTier reports whether any user holds a role at the given tier
func (r *AssignmentRepository) AnyAtTier(ctx context.Context, tier rbac.Tier) (bool, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM user_has_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE r.tier = $1 AND r.deleted_at IS NULL
	`, int(tier)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count tier assignments: %w", err)
	}
	return count > 0, nil
}
