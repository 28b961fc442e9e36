package store

import (
	"context"

	"gorm.io/gorm"

	"notably/internal/models"
)

func blobFreeImageColumns(fk string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "alt_text", "content_type", fk, "created_at", "updated_at")
	}
}

func noteMetaColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "title", "owner_id", "updated_at")
}

// CreateNote inserts the note row. Image rows are inserted separately; the
// two steps are deliberately not wrapped in one transaction.
func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	return wrapErr(s.db.WithContext(ctx).Create(note).Error)
}

// FindNoteByID loads a note with image metadata (no blobs).
func (s *Store) FindNoteByID(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	err := s.db.WithContext(ctx).
		Preload("Images", blobFreeImageColumns("note_id")).
		First(&note, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &note, nil
}

// FindNoteForOwner loads a note only if it belongs to the given owner.
func (s *Store) FindNoteForOwner(ctx context.Context, id, ownerID string) (*models.Note, error) {
	var note models.Note
	err := s.db.WithContext(ctx).
		First(&note, "id = ? AND owner_id = ?", id, ownerID).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &note, nil
}

// UpdateNote rewrites title and content. Last writer wins; there is no
// conflict detection.
func (s *Store) UpdateNote(ctx context.Context, id, title, content string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Note{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": title, "content": content})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNote removes the note; its images cascade.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	return wrapErr(s.db.WithContext(ctx).Delete(&models.Note{}, "id = ?", id).Error)
}

func (s *Store) CreateNoteImage(ctx context.Context, image *models.NoteImage) error {
	return wrapErr(s.db.WithContext(ctx).Create(image).Error)
}

// DeleteNoteImagesExcept removes every image of a note not listed in keep.
// With an empty keep list all images are removed.
func (s *Store) DeleteNoteImagesExcept(ctx context.Context, noteID string, keep []string) error {
	q := s.db.WithContext(ctx).Where("note_id = ?", noteID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return wrapErr(q.Delete(&models.NoteImage{}).Error)
}

// FindNoteImage loads the full image row, blob included.
func (s *Store) FindNoteImage(ctx context.Context, id string) (*models.NoteImage, error) {
	var image models.NoteImage
	if err := s.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &image, nil
}

func (s *Store) FindUserImage(ctx context.Context, id string) (*models.UserImage, error) {
	var image models.UserImage
	if err := s.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &image, nil
}

// ReplaceUserImage swaps the user's avatar. The unique index on user_id
// enforces at most one, so any previous row is removed first.
func (s *Store) ReplaceUserImage(ctx context.Context, image *models.UserImage) error {
	if err := s.db.WithContext(ctx).Delete(&models.UserImage{}, "user_id = ?", image.UserID).Error; err != nil {
		return wrapErr(err)
	}
	return wrapErr(s.db.WithContext(ctx).Create(image).Error)
}
