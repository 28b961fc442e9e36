package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a named grant bundle. Users acquire permissions transitively
// through assigned roles.
type Role struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description" gorm:"default:''"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	UserRoles       []UserRole       `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	RolePermissions []RolePermission `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (r *Role) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}

// Permission is an atomic (action, entity, access) grant.
type Permission struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Action      string    `json:"action" gorm:"uniqueIndex:permissions_action_entity_access;not null"`
	Entity      string    `json:"entity" gorm:"uniqueIndex:permissions_action_entity_access;not null"`
	Access      string    `json:"access" gorm:"uniqueIndex:permissions_action_entity_access;not null"`
	Description string    `json:"description" gorm:"default:''"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	RolePermissions []RolePermission `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (p *Permission) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

// UserRole is the user/role junction. Composite primary key, cascades both
// directions.
type UserRole struct {
	UserID string `json:"userId" gorm:"primaryKey"`
	RoleID string `json:"roleId" gorm:"primaryKey"`

	Role Role `json:"role"`
}

func (UserRole) TableName() string { return "user_roles" }

// RolePermission is the role/permission junction.
type RolePermission struct {
	RoleID       string `json:"roleId" gorm:"primaryKey"`
	PermissionID string `json:"permissionId" gorm:"primaryKey"`

	Permission Permission `json:"permission"`
}

func (RolePermission) TableName() string { return "role_permissions" }
