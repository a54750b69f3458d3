package client

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

type Client interface {
	Ping(ctx context.Context) error

	Upload(ctx context.Context, filename string, data []byte) (*models.Upload, error)
	ListFiles(ctx context.Context) ([]models.Artifact, error)
	GetFile(ctx context.Context, name string) (*models.Artifact, error)
	DeleteFile(ctx context.Context, name, token string) error

	ListAlbums(ctx context.Context) ([]models.Album, error)
	CreateAlbum(ctx context.Context, name, description string, shared bool) (*models.Album, error)
	AlbumFiles(ctx context.Context, albumID int64) ([]string, error)
	AddFiles(ctx context.Context, albumID int64, names []string) error
	RemoveFiles(ctx context.Context, albumID int64, names []string) error
	AddFilesToAlbums(ctx context.Context, albumIDs []int64, names []string) ([]models.BatchResult, error)
}
