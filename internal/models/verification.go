package models

import (
	"time"

	"gorm.io/gorm"
)

// Verification persists the parameters of a time-based one-time-code
// challenge. The code math itself is delegated to the OTP library; this row
// only carries what that library needs. At most one verification of a given
// type exists per target.
type Verification struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Type      string     `json:"type" gorm:"uniqueIndex:verifications_target_type;not null"`
	Target    string     `json:"target" gorm:"uniqueIndex:verifications_target_type;not null"`
	Secret    string     `json:"-" gorm:"not null"`
	Algorithm string     `json:"algorithm" gorm:"not null"`
	Digits    int        `json:"digits" gorm:"not null"`
	Period    int        `json:"period" gorm:"not null"`
	CharSet   string     `json:"charSet" gorm:"not null"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt" gorm:"autoCreateTime"`
}

func (v *Verification) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = NewID()
	}
	return nil
}
