package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snaptag/gateway/models"
)

// ErrRefNotFound is returned when no album is cached for an image.
var ErrRefNotFound = gorm.ErrRecordNotFound

// ImageRefRepository handles database operations for the image→album
// lookup cache
type ImageRefRepository struct {
	DB *gorm.DB
}

// NewImageRefRepository creates a new instance of ImageRefRepository
func NewImageRefRepository(db *gorm.DB) *ImageRefRepository {
	return &ImageRefRepository{DB: db}
}

// Put records (or refreshes) the album an image belongs to
func (r *ImageRefRepository) Put(imageID, albumID string) error {
	now := time.Now().Unix()
	ref := models.ImageAlbumRef{
		ImageID:   imageID,
		AlbumID:   albumID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"album_id": albumID, "updated_at": now}),
	}).Create(&ref).Error
	if err != nil {
		return fmt.Errorf("failed to upsert image ref %s: %w", imageID, err)
	}
	return nil
}

// PutBatch records all images of an album in one transaction. Used after
// an album-detail fetch or a finished upload, so a later bare image URL can
// be routed back to its album.
func (r *ImageRefRepository) PutBatch(albumID string, imageIDs []string) error {
	if len(imageIDs) == 0 {
		return nil
	}

	now := time.Now().Unix()
	refs := make([]models.ImageAlbumRef, 0, len(imageIDs))
	for _, id := range imageIDs {
		refs = append(refs, models.ImageAlbumRef{
			ImageID:   id,
			AlbumID:   albumID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"album_id": albumID, "updated_at": now}),
	}).Create(&refs).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d image refs for album %s: %w", len(imageIDs), albumID, err)
	}
	return nil
}

// Get returns the cached album ID for an image
func (r *ImageRefRepository) Get(imageID string) (string, error) {
	var ref models.ImageAlbumRef
	err := r.DB.First(&ref, "image_id = ?", imageID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", err
		}
		return "", fmt.Errorf("failed to get image ref %s: %w", imageID, err)
	}
	return ref.AlbumID, nil
}

// Delete drops the cache entry of a deleted image
func (r *ImageRefRepository) Delete(imageID string) error {
	err := r.DB.Delete(&models.ImageAlbumRef{}, "image_id = ?", imageID).Error
	if err != nil {
		return fmt.Errorf("failed to delete image ref %s: %w", imageID, err)
	}
	return nil
}

// DeleteByAlbum drops every cache entry of a deleted album
func (r *ImageRefRepository) DeleteByAlbum(albumID string) error {
	err := r.DB.Delete(&models.ImageAlbumRef{}, "album_id = ?", albumID).Error
	if err != nil {
		return fmt.Errorf("failed to delete image refs for album %s: %w", albumID, err)
	}
	return nil
}
