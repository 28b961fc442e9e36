package store

import (
	"context"

	"notably/internal/models"
)

func (s *Store) CreateRole(ctx context.Context, role *models.Role) error {
	return wrapErr(s.db.WithContext(ctx).Create(role).Error)
}

func (s *Store) CreatePermission(ctx context.Context, permission *models.Permission) error {
	return wrapErr(s.db.WithContext(ctx).Create(permission).Error)
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "name = ?", name).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &role, nil
}

func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	return wrapErr(s.db.WithContext(ctx).Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error)
}

func (s *Store) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	return wrapErr(s.db.WithContext(ctx).Create(&models.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error)
}

// FindPermissionMatch reports whether the user holds at least one role whose
// permission set contains a permission matching (action, entity) and, when an
// access list is given, any one of the listed scopes. Single join query,
// limited to one row.
func (s *Store) FindPermissionMatch(ctx context.Context, userID, action, entity string, access []string) (bool, error) {
	q := s.db.WithContext(ctx).
		Table("users").
		Joins("INNER JOIN user_roles ON user_roles.user_id = users.id").
		Joins("INNER JOIN roles ON roles.id = user_roles.role_id").
		Joins("INNER JOIN role_permissions ON role_permissions.role_id = roles.id").
		Joins("INNER JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("users.id = ? AND permissions.action = ? AND permissions.entity = ?", userID, action, entity)
	if len(access) > 0 {
		q = q.Where("permissions.access IN ?", access)
	}

	var ids []string
	if err := q.Limit(1).Pluck("users.id", &ids).Error; err != nil {
		return false, wrapErr(err)
	}
	return len(ids) > 0, nil
}

// FindRoleMatch reports whether the user holds the named role.
func (s *Store) FindRoleMatch(ctx context.Context, userID, roleName string) (bool, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("users").
		Joins("INNER JOIN user_roles ON user_roles.user_id = users.id").
		Joins("INNER JOIN roles ON roles.id = user_roles.role_id").
		Where("users.id = ? AND roles.name = ?", userID, roleName).
		Limit(1).
		Pluck("users.id", &ids).Error
	if err != nil {
		return false, wrapErr(err)
	}
	return len(ids) > 0, nil
}
