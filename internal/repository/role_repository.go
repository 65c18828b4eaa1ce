package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateRole = errors.New("role with this name already exists")

// RoleRepository handles role and permission data access.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

// GetPermissionsByRoleID retrieves all permission codes for a given role.
func (r *RoleRepository) GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT p.code
		 FROM permissions p
		 JOIN role_permissions rp ON p.id = rp.permission_id
		 WHERE rp.role_id = $1
		 ORDER BY p.code`, roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	permissions := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		permissions = append(permissions, code)
	}
	return permissions, rows.Err()
}

// GetRoleByID retrieves a role and its permissions by ID.
func (r *RoleRepository) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	role := &model.Role{ID: id}
	var staff int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT r.name, r.created_at, (SELECT COUNT(*) FROM admins a WHERE a.role_id = r.id)
		 FROM roles r WHERE r.id = $1`, id).Scan(&role.Name, &role.CreatedAt, &staff)
	if err != nil {
		return nil, mapError(err, nil)
	}

	permissions, err := r.GetPermissionsByRoleID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.RoleWithPermissions{
		Role:        role,
		Locked:      model.IsLockedRole(id),
		StaffCount:  staff,
		Permissions: permissions,
	}, nil
}

// ListRolesWithPermissions retrieves all roles with their associated permissions.
func (r *RoleRepository) ListRolesWithPermissions(ctx context.Context) ([]model.RoleWithPermissions, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT r.id, r.name, r.created_at,
		        (SELECT COUNT(*) FROM admins a WHERE a.role_id = r.id),
		        COALESCE(array_agg(p.code ORDER BY p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
		 FROM roles r
		 LEFT JOIN role_permissions rp ON rp.role_id = r.id
		 LEFT JOIN permissions p ON p.id = rp.permission_id
		 GROUP BY r.id
		 ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []model.RoleWithPermissions{}
	for rows.Next() {
		role := &model.Role{}
		var (
			staff       int
			permissions []string
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &staff, &permissions); err != nil {
			return nil, err
		}
		roles = append(roles, model.RoleWithPermissions{
			Role:        role,
			Locked:      model.IsLockedRole(role.ID),
			StaffCount:  staff,
			Permissions: permissions,
		})
	}
	return roles, rows.Err()
}

// CreateRole inserts a new role and returns its ID.
func (r *RoleRepository) CreateRole(ctx context.Context, name string) (int, error) {
	var id int
	err := r.db(ctx).QueryRow(ctx, "INSERT INTO roles (name) VALUES ($1) RETURNING id", name).Scan(&id)
	return id, mapError(err, ErrDuplicateRole)
}

// UpdateRole updates an existing role's name.
func (r *RoleRepository) UpdateRole(ctx context.Context, id int, name string) error {
	tag, err := r.db(ctx).Exec(ctx, "UPDATE roles SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return mapError(err, ErrDuplicateRole)
	}
	return affected(tag, nil)
}

// DeleteRole removes a role. Roles still assigned to staff are refused by
// the foreign key.
func (r *RoleRepository) DeleteRole(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, "DELETE FROM roles WHERE id = $1", id))
}

// DeleteAllPermissionsFromRole removes all permissions associated with a role.
func (r *RoleRepository) DeleteAllPermissionsFromRole(ctx context.Context, roleID int) error {
	_, err := r.db(ctx).Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID)
	return err
}

// AssignPermissionsToRole assigns a list of permission codes to a role.
// Unknown codes are ignored.
func (r *RoleRepository) AssignPermissionsToRole(ctx context.Context, roleID int, permissionCodes []string) error {
	if len(permissionCodes) == 0 {
		return nil
	}

	rows, err := r.db(ctx).Query(ctx, "SELECT id FROM permissions WHERE code = ANY($1)", permissionCodes)
	if err != nil {
		return err
	}
	permissionIDs, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}

	_, err = r.db(ctx).(copier).CopyFrom(
		ctx,
		pgx.Identifier{"role_permissions"},
		[]string{"role_id", "permission_id"},
		pgx.CopyFromSlice(len(permissionIDs), func(i int) ([]interface{}, error) {
			return []interface{}{roleID, permissionIDs[i]}, nil
		}),
	)
	return err
}

// SyncPermissions inserts every missing permission code and grants all of
// them to the given role. It returns the number of newly created codes.
func (r *RoleRepository) SyncPermissions(ctx context.Context, codes []string, roleID int) (int, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO permissions (code) SELECT unnest($1::text[]) ON CONFLICT (code) DO NOTHING`, codes)
	if err != nil {
		return 0, err
	}
	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id)
		 SELECT $1, id FROM permissions
		 ON CONFLICT DO NOTHING`, roleID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// copier is implemented by both *pgxpool.Pool and pgx.Tx.
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}
