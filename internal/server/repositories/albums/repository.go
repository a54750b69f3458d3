// Package albums persists albums and the album↔artifact association table.
//
// Association mutations are only reachable through AddFiles, RemoveFiles and
// RemoveFileEverywhere, and each of them rebuilds albums.file_count for every
// album it touched before returning. Callers run them inside dbx.WithTx so
// the association change and the recount commit together.
package albums

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

type Repository interface {
	// Create inserts a with a zero file count and sets a.ID.
	Create(ctx context.Context, a *models.Album) error

	// Get returns the album or an error matching common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.Album, error)

	// List returns albums visible to v, most recently updated first.
	List(ctx context.Context, v models.Viewer) ([]*models.Album, error)

	// Search matches query case-insensitively against name and description.
	Search(ctx context.Context, query string, v models.Viewer) ([]*models.Album, error)

	// Update writes name, description, owner, thumbnail and updated_at.
	Update(ctx context.Context, a *models.Album) error

	// Delete removes the album; associations go with it via ON DELETE CASCADE.
	Delete(ctx context.Context, id int64) (bool, error)

	// AddFiles inserts the missing (albumID, name) pairs, skipping existing
	// ones, and returns the associations actually created.
	AddFiles(ctx context.Context, albumID int64, names []string, at time.Time) ([]models.AlbumFile, error)

	// RemoveFiles deletes matching pairs and reports whether any row went away.
	RemoveFiles(ctx context.Context, albumID int64, names []string, at time.Time) (bool, error)

	// RemoveFileEverywhere detaches name from every album that holds it.
	RemoveFileEverywhere(ctx context.Context, name string, at time.Time) (bool, error)

	// Files lists the names in an album, most recently added first.
	Files(ctx context.Context, albumID int64) ([]string, error)

	// AlbumsForFile lists the albums holding name, ordered by album name.
	AlbumsForFile(ctx context.Context, name string) ([]*models.Album, error)

	// Stats aggregates album and file counts over albums visible to v.
	Stats(ctx context.Context, v models.Viewer) (models.AlbumStats, error)
}
