package store

import (
	"context"
	"strings"

	"notably/internal/models"
)

// UserSearchResult is one row of the user listing.
type UserSearchResult struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     *string `json:"name"`
	ImageID  *string `json:"imageId"`
}

// CreateUser inserts a user. Email and username are case-folded to lowercase
// at write time.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	user.Username = strings.ToLower(user.Username)
	return wrapErr(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

// FindUserByEmailOrUsername resolves an account-recovery target without
// telling the caller which of the two matched.
func (s *Store) FindUserByEmailOrUsername(ctx context.Context, target string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", target, target).
		First(&user).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

// FindUserWithPassword loads a user together with its password hash, by
// username or by id.
func (s *Store) FindUserWithPassword(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Password").
		First(&user, column+" = ?", value).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

// FindUserProfile loads a user with note metadata and avatar for the public
// profile page.
func (s *Store) FindUserProfile(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Image", blobFreeImageColumns("user_id")).
		Preload("Notes", noteMetaColumns).
		First(&user, "username = ?", username).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

// FindUserProfileByID is FindUserProfile keyed by id, for the signed-in
// user's own view.
func (s *Store) FindUserProfileByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Image", blobFreeImageColumns("user_id")).
		Preload("Notes", noteMetaColumns).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

// SearchUsers returns up to 50 users whose username or name contains term
// (case-insensitive), ordered by most-recently-updated-note descending.
// An empty term matches everyone, which makes it the unfiltered listing.
// Users without any notes sort last; postgres would otherwise put their
// NULL aggregate first under DESC.
func (s *Store) SearchUsers(ctx context.Context, term string) ([]UserSearchResult, error) {
	like := "%" + strings.ToLower(term) + "%"
	var results []UserSearchResult
	err := s.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.username, users.name, user_images.id AS image_id").
		Joins("LEFT JOIN user_images ON user_images.user_id = users.id").
		Joins("LEFT JOIN notes ON notes.owner_id = users.id").
		Where("LOWER(users.username) LIKE ? OR LOWER(users.name) LIKE ?", like, like).
		Group("users.id, users.username, users.name, user_images.id").
		Order("MAX(notes.updated_at) DESC NULLS LAST").
		Limit(50).
		Scan(&results).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return results, nil
}

// FindUserForExport loads the full user bundle: profile, notes with image
// metadata, sessions, and roles. Binary blobs are excluded.
func (s *Store) FindUserForExport(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Image", blobFreeImageColumns("user_id")).
		Preload("Notes").
		Preload("Notes.Images", blobFreeImageColumns("note_id")).
		Preload("Sessions").
		Preload("UserRoles.Role").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

// DeleteUser removes the user row. Sessions, connections, password, notes
// (and their images), avatar, and role assignments go with it via cascades.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return wrapErr(s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Password{}).
		Where("user_id = ?", userID).
		Update("hash", hash)
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreatePassword(ctx context.Context, password *models.Password) error {
	return wrapErr(s.db.WithContext(ctx).Create(password).Error)
}
