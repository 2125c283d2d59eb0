package handlers

import (
	"context"
	"io"

	"github.com/snaptag/gateway/models"
	"github.com/snaptag/gateway/progress"
	"github.com/snaptag/gateway/tagging"
)

// AlbumService is the slice of the tagging client the album and image
// handlers depend on.
type AlbumService interface {
	FetchAlbumsWithDetails(ctx context.Context) ([]models.Album, error)
	FetchAlbumDetails(ctx context.Context, albumID string) ([]models.Image, error)
	DeleteAlbum(ctx context.Context, albumID string) error
	DeleteImage(ctx context.Context, imageID, albumID string) error
	AddKeyword(ctx context.Context, imageID, albumID, keyword string) error
	DeleteKeyword(ctx context.Context, imageID, albumID, keyword string) error
}

// CSVService is the tagging client surface the export handler depends on.
type CSVService interface {
	DownloadKeywordsCSV(ctx context.Context, albumID, platform string) (io.ReadCloser, string, error)
}

// UploadService is the tagging client surface the upload handler depends on.
type UploadService interface {
	UploadBatchImages(ctx context.Context, files []tagging.UploadFile, metadata tagging.UploadMetadata, onProgress func(progress.Tick)) (*tagging.UploadResult, error)
}
