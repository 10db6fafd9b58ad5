package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/auth-gateway/internal/model"
)

// ResourceRepo manages protected resources (API patterns and menu
// items) and the role_resource_mappings join table.
type ResourceRepo struct{ DB *sql.DB }

func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{DB: db} }

const resourceColumns = "resource_id,resource_type,resource_pattern,http_method,description,menu_name,menu_url,icon_name,parent_resource_id,display_order,is_group,use_yn"

// joinedResourceColumns qualifies every column with the res alias.
// role_resource_mappings also has a resource_id column, so a join
// with an unqualified select list is rejected by MySQL (error 1052).
var joinedResourceColumns = "res." + strings.ReplaceAll(resourceColumns, ",", ",res.")

func scanResource(scan func(dest ...any) error) (model.Resource, error) {
	var (
		res                           model.Resource
		method, desc, name, url, icon sql.NullString
		parentID                      sql.NullInt64
	)
	err := scan(&res.ID, &res.Type, &res.Pattern, &method, &desc, &name, &url,
		&icon, &parentID, &res.DisplayOrder, &res.IsGroup, &res.UseYn)
	if err != nil {
		return res, err
	}
	if method.Valid {
		res.HTTPMethod = &method.String
	}
	if desc.Valid {
		res.Description = &desc.String
	}
	if name.Valid {
		res.MenuName = &name.String
	}
	if url.Valid {
		res.MenuURL = &url.String
	}
	if icon.Valid {
		res.IconName = &icon.String
	}
	if parentID.Valid {
		res.ParentID = &parentID.Int64
	}
	return res, nil
}

// FindByID fetches one resource.
func (r *ResourceRepo) FindByID(ctx context.Context, id int64) (*model.Resource, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE resource_id=? LIMIT 1", id)
	res, err := scanResource(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// FindAllMenus lists every menu-type resource ordered by display
// order; used by the admin screens.
func (r *ResourceRepo) FindAllMenus(ctx context.Context) ([]model.Resource, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE resource_type=? ORDER BY display_order, resource_id",
		model.ResourceTypeMenu)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResources(rows)
}

// MenuResourcesByRoleIDs returns the distinct active menu resources
// reachable by any of the given role ids. Parents are not guaranteed
// to precede children; the ORDER BY only fixes the stable pre-sort
// order the resolver relies on for tie-breaking.
func (r *ResourceRepo) MenuResourcesByRoleIDs(ctx context.Context, roleIDs []int64) ([]model.Resource, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(roleIDs)+1)
	args = append(args, model.ResourceTypeMenu)
	for _, id := range roleIDs {
		args = append(args, id)
	}

	rows, err := r.DB.QueryContext(ctx, menuResourcesQuery(len(roleIDs)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResources(rows)
}

func menuResourcesQuery(roleCount int) string {
	placeholders := strings.Repeat("?,", roleCount)
	placeholders = placeholders[:len(placeholders)-1]

	return `SELECT DISTINCT ` + joinedResourceColumns + `
	 FROM resources res
	 JOIN role_resource_mappings m ON m.resource_id = res.resource_id
	 WHERE res.resource_type = ? AND res.use_yn = 'Y' AND m.role_id IN (` + placeholders + `)
	 ORDER BY res.display_order, res.resource_id`
}

func collectResources(rows *sql.Rows) ([]model.Resource, error) {
	var out []model.Resource
	for rows.Next() {
		res, err := scanResource(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Create inserts a resource and fills in its generated id.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	out, err := r.DB.ExecContext(ctx,
		`INSERT INTO resources
		 (resource_type, resource_pattern, http_method, description, menu_name, menu_url, icon_name, parent_resource_id, display_order, is_group, use_yn)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		res.Type, res.Pattern, res.HTTPMethod, res.Description, res.MenuName,
		res.MenuURL, res.IconName, res.ParentID, res.DisplayOrder, res.IsGroup, res.UseYn)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = id
	return nil
}

// Update overwrites every mutable column of a resource.
func (r *ResourceRepo) Update(ctx context.Context, res *model.Resource) error {
	out, err := r.DB.ExecContext(ctx,
		`UPDATE resources SET
		 resource_pattern=?, http_method=?, description=?, menu_name=?, menu_url=?,
		 icon_name=?, parent_resource_id=?, display_order=?, is_group=?, use_yn=?
		 WHERE resource_id=?`,
		res.Pattern, res.HTTPMethod, res.Description, res.MenuName, res.MenuURL,
		res.IconName, res.ParentID, res.DisplayOrder, res.IsGroup, res.UseYn, res.ID)
	if err != nil {
		return err
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a resource and its role mappings.
func (r *ResourceRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM role_resource_mappings WHERE resource_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM resources WHERE resource_id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// MapToRole grants a role access to a resource; granting twice is a no-op.
func (r *ResourceRepo) MapToRole(ctx context.Context, roleID, resourceID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO role_resource_mappings (role_id, resource_id) VALUES (?,?)",
		roleID, resourceID)
	return err
}

// UnmapFromRole revokes a role's access to a resource.
func (r *ResourceRepo) UnmapFromRole(ctx context.Context, roleID, resourceID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM role_resource_mappings WHERE role_id=? AND resource_id=?",
		roleID, resourceID)
	return err
}
