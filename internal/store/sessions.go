package store

import (
	"context"
	"time"

	"notably/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, userID string, expiration time.Time) (*models.Session, error) {
	session := &models.Session{
		ExpirationDate: expiration,
		UserID:         userID,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, wrapErr(err)
	}
	return session, nil
}

// FindSessionWithUser loads a session joined to its owning user. A session
// whose user has been deleted does not exist here (the row is gone via
// cascade), so a stale cookie resolves to ErrNotFound.
func (s *Store) FindSessionWithUser(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	if session.User == nil {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return wrapErr(s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error)
}

// DeleteSessionsForUser removes every session owned by the user, e.g. after
// a password reset.
func (s *Store) DeleteSessionsForUser(ctx context.Context, userID string) error {
	return wrapErr(s.db.WithContext(ctx).Delete(&models.Session{}, "user_id = ?", userID).Error)
}
