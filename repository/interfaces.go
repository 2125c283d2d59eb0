package repository

// ImageRefRepositoryInterface defines the methods for image→album lookup
// cache operations
type ImageRefRepositoryInterface interface {
	Put(imageID, albumID string) error
	PutBatch(albumID string, imageIDs []string) error
	Get(imageID string) (string, error)
	Delete(imageID string) error
	DeleteByAlbum(albumID string) error
}
