// Package store owns the database lifecycle and exposes the named
// data-access operations the rest of the application is built on. Nothing
// outside this package issues queries directly.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"notably/internal/models"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Store wraps a single database handle. It is constructed once at startup
// and passed to every component that needs it.
type Store struct {
	db *gorm.DB
}

// New wraps an already-open gorm handle. Used by tests and by Connect.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Connect opens a postgres connection from the given DSN.
func Connect(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the twelve tables. Foreign keys cascade on
// delete and update; application code relies on that contract everywhere.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Password{},
		&models.Session{},
		&models.Connection{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
		&models.Note{},
		&models.NoteImage{},
		&models.UserImage{},
		&models.Verification{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Reset drops every table in strict reverse-dependency order so foreign-key
// constraints never block a drop.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"verifications",
		"note_images",
		"notes",
		"user_images",
		"sessions",
		"connections",
		"passwords",
		"role_permissions",
		"permissions",
		"user_roles",
		"roles",
		"users",
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
