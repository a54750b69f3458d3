// Package artifacts keeps the registry of stored files: where each one
// lives below the storage root, its thumbnail, and the digest of its
// deletion token.
package artifacts

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

type Repository interface {
	// Put inserts the artifact or replaces the row with the same name.
	Put(ctx context.Context, a *models.Artifact) error
	Get(ctx context.Context, name string) (*models.Artifact, error)
	// List returns every artifact, newest first.
	List(ctx context.Context) ([]*models.Artifact, error)
	Delete(ctx context.Context, name string) (bool, error)
}
