package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Notes       []Note       `json:"notes,omitempty" gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Sessions    []Session    `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Connections []Connection `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	UserRoles   []UserRole   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Image       *UserImage   `json:"image,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Password    *Password    `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

// Password holds a single bcrypt hash per user. The user id doubles as the
// primary key, which is what enforces the at-most-one-per-user rule.
type Password struct {
	Hash   string `json:"-" gorm:"not null"`
	UserID string `json:"-" gorm:"primaryKey"`
}
