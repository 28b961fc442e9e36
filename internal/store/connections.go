package store

import (
	"context"

	"notably/internal/models"
)

func (s *Store) CreateConnection(ctx context.Context, connection *models.Connection) error {
	return wrapErr(s.db.WithContext(ctx).Create(connection).Error)
}

// FindConnection resolves an external identity to its local linkage.
func (s *Store) FindConnection(ctx context.Context, providerName, providerID string) (*models.Connection, error) {
	var connection models.Connection
	err := s.db.WithContext(ctx).
		First(&connection, "provider_name = ? AND provider_id = ?", providerName, providerID).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &connection, nil
}
