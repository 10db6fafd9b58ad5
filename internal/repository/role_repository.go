package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/auth-gateway/internal/model"
)

// RoleRepo manages roles and the user_roles join table.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// FindAll lists every role ordered by id.
func (r *RoleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role_id, role_name, description FROM roles ORDER BY role_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var ro model.Role
		if err := rows.Scan(&ro.ID, &ro.Name, &ro.Description); err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, rows.Err()
}

// FindByID fetches one role.
func (r *RoleRepo) FindByID(ctx context.Context, id int64) (*model.Role, error) {
	var ro model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT role_id, role_name, description FROM roles WHERE role_id=? LIMIT 1", id).
		Scan(&ro.ID, &ro.Name, &ro.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ro, nil
}

// Create inserts a role and fills in its generated id.
func (r *RoleRepo) Create(ctx context.Context, ro *model.Role) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (role_name, description) VALUES (?,?)", ro.Name, ro.Description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ro.ID = id
	return nil
}

// UpdateDescription changes a role's description. Role names are
// immutable once created; authorities reference them by name.
func (r *RoleRepo) UpdateDescription(ctx context.Context, id int64, description string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET description=? WHERE role_id=?", description, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a role. Rows in user_roles or
// role_resource_mappings that still reference it surface as a
// foreign-key conflict.
func (r *RoleRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE role_id=?", id)
	if err != nil {
		// MySQL error 1451: row referenced by a foreign key.
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// RoleIDsByUsername returns the ids of roles assigned to a user.
func (r *RoleRepo) RoleIDsByUsername(ctx context.Context, username string) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role_id FROM user_roles WHERE user_name=? ORDER BY role_id", username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignToUser links a role to a user. Assigning twice is a no-op.
func (r *RoleRepo) AssignToUser(ctx context.Context, username string, roleID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_name, role_id) VALUES (?,?)", username, roleID)
	return err
}

// RemoveFromUser unlinks a role from a user.
func (r *RoleRepo) RemoveFromUser(ctx context.Context, username string, roleID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_name=? AND role_id=?", username, roleID)
	return err
}
