package store

import (
	"context"

	"notably/internal/models"
)

// UpsertVerification replaces any existing verification for the same
// (target, type) pair, keeping at most one active challenge per target and
// kind.
func (s *Store) UpsertVerification(ctx context.Context, v *models.Verification) error {
	err := s.db.WithContext(ctx).
		Delete(&models.Verification{}, "target = ? AND type = ?", v.Target, v.Type).Error
	if err != nil {
		return wrapErr(err)
	}
	return wrapErr(s.db.WithContext(ctx).Create(v).Error)
}

func (s *Store) FindVerification(ctx context.Context, target, typ string) (*models.Verification, error) {
	var v models.Verification
	err := s.db.WithContext(ctx).
		First(&v, "target = ? AND type = ?", target, typ).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &v, nil
}

func (s *Store) DeleteVerification(ctx context.Context, target, typ string) error {
	return wrapErr(s.db.WithContext(ctx).
		Delete(&models.Verification{}, "target = ? AND type = ?", target, typ).Error)
}
