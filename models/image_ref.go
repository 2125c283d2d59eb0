package models

// ImageAlbumRef maps an image ID back to the album that contains it. It
// replaces the ad hoc per-image keys the web client used to stash in local
// storage so that navigating to a bare image URL can recover its album.
// It corresponds to the 'image_album_refs' table.
type ImageAlbumRef struct {
	ImageID   string `gorm:"primaryKey" json:"image_id"`
	AlbumID   string `gorm:"not null;index" json:"album_id"`
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64  `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (ImageAlbumRef) TableName() string {
	return "image_album_refs"
}
