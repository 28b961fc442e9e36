package models

import (
	"time"

	"gorm.io/gorm"
)

// Session binds an opaque identifier to a user and an expiration instant.
// The client never holds more than the id (inside a signed cookie).
type Session struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	ExpirationDate time.Time `json:"expirationDate" gorm:"not null"`
	UserID         string    `json:"userId" gorm:"index;not null"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	User *User `json:"-"`
}

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}
