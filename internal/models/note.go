package models

import (
	"time"

	"gorm.io/gorm"
)

type Note struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null"`
	Content   string    `json:"content" gorm:"not null"`
	OwnerID   string    `json:"ownerId" gorm:"index;index:notes_owner_id_updated_at,priority:1;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime;index:notes_owner_id_updated_at,priority:2"`

	Images []NoteImage `json:"images,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = NewID()
	}
	return nil
}

// NoteImage stores one binary attachment. The payload is never serialized to
// JSON; clients fetch it through the image endpoint instead.
type NoteImage struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AltText     *string   `json:"altText"`
	ContentType string    `json:"contentType" gorm:"not null"`
	Blob        []byte    `json:"-" gorm:"not null"`
	NoteID      string    `json:"noteId" gorm:"index;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (i *NoteImage) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}
