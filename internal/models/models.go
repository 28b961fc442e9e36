// Package models defines the persisted entities. Primary keys are random
// collision-resistant string identifiers generated application-side in
// BeforeCreate hooks; all relationships cascade on delete and update at the
// store level, so no model re-implements cascade logic.
package models

import "github.com/google/uuid"

// NewID returns a fresh identifier for any entity.
func NewID() string {
	return uuid.NewString()
}
