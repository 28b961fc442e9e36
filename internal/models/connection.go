package models

import (
	"time"

	"gorm.io/gorm"
)

// Connection links a local user to an external identity-provider account.
// One external identity maps to at most one local user.
type Connection struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	ProviderName string    `json:"providerName" gorm:"uniqueIndex:connections_provider_name_id;not null"`
	ProviderID   string    `json:"providerId" gorm:"uniqueIndex:connections_provider_name_id;not null"`
	UserID       string    `json:"userId" gorm:"index;not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (c *Connection) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}
