// Package tokens stores the deletion tokens the server returned for files
// uploaded from this client. The server keeps only a digest, so a lost
// token means the file can no longer be deleted by its uploader.
package tokens

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns "" when no token is stored for name.
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, token string, at time.Time) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) (map[string]string, error)
}
