package models

import (
	"time"

	"gorm.io/gorm"
)

// UserImage is the user's avatar. The unique index on UserID keeps it to at
// most one per user.
type UserImage struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AltText     *string   `json:"altText"`
	ContentType string    `json:"contentType" gorm:"not null"`
	Blob        []byte    `json:"-" gorm:"not null"`
	UserID      string    `json:"userId" gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (i *UserImage) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}
